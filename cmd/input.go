package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// promptPassword reads a password twice from the terminal without echo.
func promptPassword(w io.Writer) (string, error) {
	first, err := readHidden(w, "Password: ")
	if err != nil {
		return "", err
	}
	second, err := readHidden(w, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errPasswordMismatch
	}
	return first, nil
}

func readHidden(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
