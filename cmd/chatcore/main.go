// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// chatcore is a headless Matrix client driver. It authenticates against
// a homeserver, runs a scripted sequence of engine commands (initial
// sync, incremental syncs, optionally opening a room or searching the
// public directory), and prints every engine response to stdout as one
// JSON object per line. Logs go to stderr.
//
// It is intended for scripting and for exercising a homeserver from the
// command line; interactive front-ends embed the engine package
// directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/chatcore/engine"
	"github.com/bureau-foundation/chatcore/lib/config"
	"github.com/bureau-foundation/chatcore/lib/secret"
	"github.com/bureau-foundation/chatcore/lib/version"
	"github.com/bureau-foundation/chatcore/media"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the parsed command line.
type options struct {
	configPath            string
	homeserver            string
	username              string
	passwordFile          string
	registrationTokenFile string
	accessTokenFile       string
	deviceID              string
	guest                 bool
	register              bool
	syncs                 int
	room                  string
	search                string
	protocol              string
	searchPages           int
	cacheDirectory        string
}

func run() error {
	var opts options

	flagSet := pflag.NewFlagSet("chatcore", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to chatcore.yaml (default: $CHATCORE_CONFIG, else built-in defaults)")
	flagSet.StringVar(&opts.homeserver, "homeserver", "", "homeserver URL (overrides the config file)")
	flagSet.StringVarP(&opts.username, "user", "u", "", "username or full user ID to log in as")
	flagSet.StringVar(&opts.passwordFile, "password-file", "", "read the password from this file (\"-\" for stdin); prompts when omitted on a terminal")
	flagSet.StringVar(&opts.registrationTokenFile, "registration-token-file", "", "read a registration token from this file (with --register)")
	flagSet.StringVar(&opts.accessTokenFile, "access-token-file", "", "resume a stored session with the access token in this file (--user must be a full user ID)")
	flagSet.StringVar(&opts.deviceID, "device-id", "", "device ID of the stored session (with --access-token-file)")
	flagSet.BoolVar(&opts.guest, "guest", false, "enter as a guest instead of logging in")
	flagSet.BoolVar(&opts.register, "register", false, "register the account before using it")
	flagSet.IntVar(&opts.syncs, "syncs", 0, "number of incremental syncs to run after the initial sync")
	flagSet.StringVar(&opts.room, "room", "", "room ID to open after the initial sync")
	flagSet.StringVar(&opts.search, "search", "", "search the public room directory for this term")
	flagSet.StringVar(&opts.protocol, "protocol", "", "third-party network instance to search (with --search)")
	flagSet.IntVar(&opts.searchPages, "search-pages", 1, "number of directory pages to fetch (with --search)")
	flagSet.StringVar(&opts.cacheDirectory, "cache-dir", "", "media cache directory (overrides the config file)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("chatcore %s\n", version.Full())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(&opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	cache, err := media.NewCache(media.CacheConfig{
		Directory: cfg.CacheDirectory,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	core, err := engine.New(engine.Config{
		Homeserver:        cfg.Homeserver,
		Logger:            logger,
		Cache:             cache,
		SyncTimeout:       cfg.Sync.Timeout,
		TimelinePageSize:  cfg.Timeline.PageSize,
		TimelineMinimum:   cfg.Timeline.Minimum,
		DirectoryPageSize: cfg.Directory.PageSize,
		ThumbnailSize:     cfg.Media.ThumbnailSize,
		DeviceDisplayName: cfg.DeviceDisplayName,
	})
	if err != nil {
		return err
	}

	auth, closeSecrets, err := authCommand(&opts)
	if err != nil {
		return err
	}
	defer closeSecrets()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return drive(ctx, core, auth, buildScript(&opts), os.Stdout)
}

func (o *options) validate() error {
	if o.guest && (o.register || o.username != "") {
		return fmt.Errorf("--guest cannot be combined with --user or --register")
	}
	if !o.guest && o.username == "" {
		return fmt.Errorf("--user is required unless --guest is set")
	}
	if o.accessTokenFile != "" && (o.guest || o.register || o.passwordFile != "") {
		return fmt.Errorf("--access-token-file cannot be combined with --guest, --register, or --password-file")
	}
	if o.deviceID != "" && o.accessTokenFile == "" {
		return fmt.Errorf("--device-id requires --access-token-file")
	}
	if o.registrationTokenFile != "" && !o.register {
		return fmt.Errorf("--registration-token-file requires --register")
	}
	if o.syncs < 0 {
		return fmt.Errorf("--syncs must not be negative, got %d", o.syncs)
	}
	if o.searchPages < 1 {
		return fmt.Errorf("--search-pages must be at least 1, got %d", o.searchPages)
	}
	if o.protocol != "" && o.search == "" {
		return fmt.Errorf("--protocol requires --search")
	}
	return nil
}

// loadConfig resolves the configuration source and applies flag
// overrides: --config, then $CHATCORE_CONFIG, then built-in defaults.
func loadConfig(opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadFile(opts.configPath)
	case os.Getenv("CHATCORE_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if opts.homeserver != "" {
		cfg.Homeserver = opts.homeserver
	}
	if opts.cacheDirectory != "" {
		cfg.CacheDirectory = opts.cacheDirectory
	}
	if cfg.Homeserver == "" {
		return nil, fmt.Errorf("no homeserver configured; set homeserver in the config file or pass --homeserver")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureCacheDirectory(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes human-readable records to a terminal and JSON
// records otherwise.
func newLogger(levelName string) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		return nil, err
	}
	handlerOptions := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions)), nil
}

// authCommand builds the authentication command from the options. The
// returned function releases any secret buffers the command holds.
func authCommand(opts *options) (engine.Command, func(), error) {
	if opts.guest {
		return engine.GuestEntry{}, func() {}, nil
	}
	if opts.accessTokenFile != "" {
		accessToken, err := secret.ReadFromPath(opts.accessTokenFile)
		if err != nil {
			return nil, nil, fmt.Errorf("reading access token: %w", err)
		}
		return engine.ResumeSession{
			UserID:      opts.username,
			DeviceID:    opts.deviceID,
			AccessToken: accessToken,
		}, func() { accessToken.Close() }, nil
	}

	password, err := readPassword(opts.passwordFile)
	if err != nil {
		return nil, nil, err
	}

	if !opts.register {
		return engine.Login{Username: opts.username, Password: password}, func() { password.Close() }, nil
	}

	var registrationToken *secret.Buffer
	if opts.registrationTokenFile != "" {
		registrationToken, err = secret.ReadFromPath(opts.registrationTokenFile)
		if err != nil {
			password.Close()
			return nil, nil, fmt.Errorf("reading registration token: %w", err)
		}
	}
	release := func() {
		password.Close()
		if registrationToken != nil {
			registrationToken.Close()
		}
	}
	return engine.Register{
		Username:          opts.username,
		Password:          password,
		RegistrationToken: registrationToken,
	}, release, nil
}

// readPassword reads the password from a file, or prompts for it when
// no file is given and stdin is a terminal.
func readPassword(path string) (*secret.Buffer, error) {
	if path != "" {
		password, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return password, nil
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return nil, fmt.Errorf("no terminal for a password prompt; use --password-file")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	if len(passwordBytes) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}
	password, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, err
	}
	return password, nil
}

// buildScript returns the commands sent after a successful
// authentication, ending with Shutdown.
func buildScript(opts *options) []engine.Command {
	script := []engine.Command{engine.GetDisplayName{}, engine.Sync{}}
	if opts.room != "" {
		script = append(script, engine.SetActiveRoom{RoomID: opts.room})
	}
	if opts.search != "" {
		script = append(script, engine.DirectoryListProtocols{})
		script = append(script, engine.DirectorySearch{Query: opts.search, Protocol: opts.protocol})
		for range opts.searchPages - 1 {
			script = append(script, engine.DirectorySearch{Query: opts.search, Protocol: opts.protocol, More: true})
		}
	}
	for range opts.syncs {
		script = append(script, engine.Sync{})
	}
	return append(script, engine.Shutdown{})
}

// drive runs the engine, sends auth, waits for its outcome, and then
// sends the script. Every response is printed to output.
func drive(ctx context.Context, core *engine.Engine, auth engine.Command, script []engine.Command, output io.Writer) error {
	commands := make(chan engine.Command, len(script)+1)
	responses := make(chan engine.Response, 64)

	authenticated := make(chan error, 1)
	printed := make(chan error, 1)
	go func() {
		printed <- printResponses(output, responses, authenticated)
	}()

	runResult := make(chan error, 1)
	go func() {
		runResult <- core.Run(ctx, commands, responses)
	}()

	commands <- auth

	var authErr error
	select {
	case authErr = <-authenticated:
	case err := <-runResult:
		close(responses)
		<-printed
		return err
	}

	if authErr != nil {
		commands <- engine.Shutdown{}
	} else {
		for _, command := range script {
			commands <- command
		}
	}

	runErr := <-runResult
	close(responses)
	printErr := <-printed

	if authErr != nil {
		return authErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return printErr
}

// printResponses writes each response as {"type": ..., "response": ...}
// and reports the first authentication outcome on authenticated.
func printResponses(output io.Writer, responses <-chan engine.Response, authenticated chan<- error) error {
	encoder := json.NewEncoder(output)
	reported := false
	var writeErr error
	for response := range responses {
		if !reported {
			if settled, outcome := authOutcome(response); settled {
				authenticated <- outcome
				reported = true
			}
		}
		if writeErr != nil {
			continue
		}
		writeErr = encoder.Encode(struct {
			Type     string          `json:"type"`
			Response engine.Response `json:"response"`
		}{responseType(response), response})
	}
	return writeErr
}

// authOutcome reports whether response settles an authentication
// command and, if so, the resulting error.
func authOutcome(response engine.Response) (bool, error) {
	switch response := response.(type) {
	case engine.Token:
		return true, nil
	case *engine.Failure:
		switch response.Family {
		case engine.FamilyLogin, engine.FamilyGuestLogin:
			return true, response
		}
	}
	return false, nil
}

// responseType names a response by its Go type, without the package
// qualifier or pointer marker.
func responseType(response engine.Response) string {
	typ := reflect.TypeOf(response)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	return typ.Name()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `chatcore: scripted Matrix client.

Logs in (or registers, or enters as a guest), runs an initial sync, and
then the optional steps selected by flags. Every engine response is
written to stdout as one JSON object per line.

Usage:
  chatcore [flags]

Examples:
  # Log in and list joined rooms
  chatcore --homeserver https://matrix.example.org --user alice --password-file ~/.alice-pw

  # Resume a stored session without logging in again
  chatcore --homeserver https://matrix.example.org --user @alice:example.org --access-token-file ~/.alice-token

  # Guest entry, open a room, and follow it for three syncs
  chatcore --homeserver https://matrix.example.org --guest --room '!abc:example.org' --syncs 3

  # Search the public directory two pages deep
  chatcore --config chatcore.yaml --user alice --search rust --search-pages 2

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
