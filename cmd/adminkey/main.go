// Command adminkey prints the bcrypt hash to put in ADMIN_KEY_HASH.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const minKeyLength = 16

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

func main() {
	key, err := readKey(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "adminkey:", err)
		os.Exit(1)
	}
	hash, err := hashKey(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "adminkey:", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

// readKey prompts without echo on a terminal and reads one line otherwise.
func readKey(in *os.File, w io.Writer) ([]byte, error) {
	if term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(w, "Admin key: ")
		key, err := readPassword(int(in.Fd()))
		fmt.Fprintln(w)
		return key, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}

func hashKey(key []byte) (string, error) {
	if len(key) < minKeyLength {
		return "", fmt.Errorf("admin key must be at least %d characters", minKeyLength)
	}
	hash, err := bcrypt.GenerateFromPassword(key, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
