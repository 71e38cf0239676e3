package main

import (
	"context"
	"fmt"
	"os"
)

// loadStudents bulk-registers students from a CSV file and prints the
// import report. Rows that fail validation are reported but do not abort
// the rest of the file.
func (cli *commandLine) loadStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	report, err := cli.rosterSvc.ImportStudentsCSV(context.Background(), f)
	if err != nil {
		return err
	}

	fmt.Printf("created %d students (%d rows failed)\n", report.Created, len(report.Errors))
	for _, rowErr := range report.Errors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Error)
	}
	return nil
}
