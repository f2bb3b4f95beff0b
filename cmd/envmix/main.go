// SPDX-License-Identifier: MIT

// envmix is a dotenv runner and inspector.
//
// Usage:
//
//	envmix [-f file]... [-prefix PFX] [-print] [-json] [--] command [args...]
//
// It reads the given .env files (default ".env") and merges them below
// the process environment, so a variable set in both places keeps the
// process value. With -print or -json the effective variables and their
// source are listed (sensitive values masked); -prefix limits the
// listing to variables with that name prefix. With a command, the
// command is executed with the merged environment.
//
// Exit codes:
//   - 0: Success
//   - 1: Read or execution error
//   - 2: Usage error
//
// A command's own exit code is passed through.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/c0sogi/envmix"
	"github.com/c0sogi/envmix/internal/dotenv"
	"github.com/c0sogi/envmix/internal/log"
)

var Version = "dev"

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

type entry struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Source    string `json:"source"`
	Sensitive bool   `json:"sensitive"`
}

func main() {
	log.Configure(log.Config{Console: true})
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		files       fileList
		prefix      string
		printVars   bool
		jsonVars    bool
		showVersion bool
	)

	fs := flag.NewFlagSet("envmix", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&files, "f", "path to a .env file (repeatable, default \".env\")")
	fs.StringVar(&prefix, "prefix", "", "limit the listing to variables with this name prefix")
	fs.BoolVar(&printVars, "print", false, "list the effective variables and their source")
	fs.BoolVar(&jsonVars, "json", false, "like -print, in JSON")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if showVersion {
		fmt.Fprintln(stdout, Version)
		return 0
	}

	command := fs.Args()
	if !printVars && !jsonVars && len(command) == 0 {
		fmt.Fprintln(stderr, "Error: nothing to do")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  envmix [-f file]... [-prefix PFX] [-print] [-json] [--] command [args...]")
		return 2
	}

	paths := []string(files)
	explicit := len(paths) > 0
	if !explicit {
		paths = []string{".env"}
	}
	fileVars, err := dotenv.Read(paths, explicit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	merged := mergeEnviron(fileVars, os.Environ())

	if printVars || jsonVars {
		listing := filterPrefix(merged, prefix)
		if jsonVars {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(listing); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		} else {
			for _, e := range listing {
				fmt.Fprintf(stdout, "%s=%s (%s)\n", e.Name, e.Value, e.Source)
			}
		}
	}

	if len(command) == 0 {
		return 0
	}
	return execute(command, merged, stdout, stderr)
}

// mergeEnviron layers the process environment over the dotenv variables,
// keeping per-variable source attribution.
func mergeEnviron(fileVars map[string]string, environ []string) []entry {
	byName := make(map[string]entry, len(fileVars)+len(environ))
	for name, value := range fileVars {
		byName[name] = entry{Name: name, Value: value, Source: string(envmix.SourceDotenv)}
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		byName[name] = entry{Name: name, Value: value, Source: string(envmix.SourceEnv)}
	}

	entries := make([]entry, 0, len(byName))
	for _, e := range byName {
		e.Sensitive = envmix.IsSensitive(e.Name)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func filterPrefix(entries []entry, prefix string) []entry {
	listing := make([]entry, 0, len(entries))
	for _, e := range entries {
		if prefix != "" && !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		if e.Sensitive {
			e.Value = "***"
		}
		listing = append(listing, e)
	}
	return listing
}

func execute(command []string, merged []entry, stdout, stderr io.Writer) int {
	environ := make([]string, 0, len(merged))
	for _, e := range merged {
		environ = append(environ, e.Name+"="+e.Value)
	}

	logger := log.WithComponent("envmix")
	logger.Debug().Str("command", command[0]).Int("vars", len(environ)).Msg("executing command")

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = environ
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
