// Command keygen prints a fresh random session encryption key, base64
// encoded, suitable for CREDITDASH_ENCRYPTION_KEY.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/odanree/credit-history-app/internal/secret"
)

func main() {
	key := make([]byte, secret.KeySize)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintln(os.Stderr, "failed to generate key:", err)
		os.Exit(1)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(key))
}
