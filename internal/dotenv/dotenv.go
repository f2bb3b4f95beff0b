// SPDX-License-Identifier: MIT

// Package dotenv reads .env files for the resolver and the CLI.
package dotenv

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// Read parses the given .env files and merges them first-file-wins,
// matching godotenv.Load precedence. When explicit is false the paths
// are implicit defaults and a missing file is skipped silently; an
// explicitly configured file that cannot be read is an error.
func Read(paths []string, explicit bool) (map[string]string, error) {
	merged := make(map[string]string)
	for _, path := range paths {
		vars, err := godotenv.Read(path)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read dotenv %s: %w", path, err)
		}
		for k, v := range vars {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}
