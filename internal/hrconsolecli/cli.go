package hrconsolecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/phillip-england/hrconsole/internal/clientapp"
	"github.com/phillip-england/hrconsole/internal/envutil"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/phillip-england/hrconsole/internal/spreadsheet"
	"github.com/phillip-england/hrconsole/internal/stats"
	"github.com/phillip-england/hrconsole/internal/tokenstore"
)

var ErrUsage = errors.New("usage")

const envFile = ".env"

// Usage is printed alongside ErrUsage.
const Usage = `usage: hrconsole setup [--api-url URL] [--addr :3000] [--token-path FILE] [--log-level info] [--force]
       hrconsole token set <value> | token clear
       hrconsole run
       hrconsole import <employees.xlsx|employees.xls>
       hrconsole export [--format xlsx|json.xz] [--out FILE] [--status S] [--date D] [--start D] [--end D] [--search Q]
       hrconsole watch [--delay 500ms]`

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	now    func() time.Time
	ctx    context.Context
}

func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	c := &cli{stdin: os.Stdin, stdout: os.Stdout, now: time.Now, ctx: ctx}
	return c.execute(args)
}

func (c *cli) execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return c.runSetup(args[1:])
	case "token":
		return c.runToken(args[1:])
	case "run":
		return c.runServer(args[1:])
	case "import":
		return c.runImport(args[1:])
	case "export":
		return c.runExport(args[1:])
	case "watch":
		return c.runWatch(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: hrconsole <setup|token|run|import|export|watch> [...]", ErrUsage)
}

func (c *cli) runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	apiURL := fs.String("api-url", hrapi.DefaultBaseURL, "HR backend base URL")
	addr := fs.String("addr", ":3000", "console listen address")
	tokenPath := fs.String("token-path", "hrconsole-state.json", "file holding the auth token")
	logLevel := fs.String("log-level", "info", "log level")
	envPath := fs.String("env-file", envFile, "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	values := map[string]string{
		"HR_API_URL":    *apiURL,
		"CLIENT_ADDR":   *addr,
		"HR_TOKEN_PATH": *tokenPath,
		"LOG_LEVEL":     *logLevel,
	}
	if err := ensureParentDirs(*envPath, *tokenPath); err != nil {
		return err
	}
	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", *envPath)
	return nil
}

func (c *cli) runToken(args []string) error {
	if len(args) < 1 {
		return errors.New("missing token action: set | clear")
	}
	if err := loadEnv(); err != nil {
		return err
	}
	store := tokenStore()

	switch args[0] {
	case "set":
		if len(args) != 2 || args[1] == "" {
			return errors.New("token set requires a value")
		}
		if err := store.Set(tokenstore.TokenKey, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "token saved to %s\n", store.Path())
		return nil
	case "clear":
		if err := store.Delete(tokenstore.TokenKey); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, "token cleared")
		return nil
	default:
		return fmt.Errorf("unknown token action %q", args[0])
	}
}

func (c *cli) runServer(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("run takes no arguments, got %q", args[0])
	}
	if err := loadEnv(); err != nil {
		return err
	}
	if err := clientapp.Run(c.ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *cli) runImport(args []string) error {
	if len(args) != 1 {
		return errors.New("import requires exactly one spreadsheet path")
	}
	if err := loadEnv(); err != nil {
		return err
	}
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := spreadsheet.ImportEmployees(c.ctx, apiClient().Employees(), file, filepath.Base(args[0]))
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	fmt.Fprintln(c.stdout, result.Summary())
	for _, failure := range result.Failed {
		fmt.Fprintf(c.stdout, "  row %d (%s): %s\n", failure.Row, failure.EmployeeID, failure.Message)
	}
	return nil
}

func (c *cli) runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	formatFlag := fs.String("format", string(spreadsheet.FormatXLSX), "xlsx or json.xz")
	out := fs.String("out", "", "output file (defaults to a timestamped name)")
	status := fs.String("status", "", "present or absent")
	date := fs.String("date", "", "exact date (YYYY-MM-DD)")
	start := fs.String("start", "", "range start (YYYY-MM-DD)")
	end := fs.String("end", "", "range end (YYYY-MM-DD)")
	search := fs.String("search", "", "employee name or ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := spreadsheet.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}
	filter := hrapi.AttendanceFilter{
		Status:    hrapi.Status(*status),
		Date:      *date,
		StartDate: *start,
		EndDate:   *end,
		Search:    *search,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("invalid status %q", *status)
	}
	if err := loadEnv(); err != nil {
		return err
	}

	records, err := apiClient().Attendance().List(c.ctx, filter)
	if err != nil {
		return fmt.Errorf("list attendance: %s", hrapi.Message(err, "Failed to load attendance"))
	}

	now := c.now()
	path := *out
	if path == "" {
		path = format.Filename(now)
	}
	if err := ensureParentDirs(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := spreadsheet.Export(file, format, records, filter, now); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	summary := stats.Summarize(records)
	fmt.Fprintf(c.stdout, "wrote %d records to %s (%d present, %d absent)\n", summary.Total, path, summary.Present, summary.Absent)
	return nil
}

func loadEnv() error {
	if err := envutil.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	logging.SetLevel(envutil.OrDefault("LOG_LEVEL", "info"))
	return nil
}

func tokenStore() *tokenstore.Store {
	return tokenstore.Open(envutil.OrDefault("HR_TOKEN_PATH", "hrconsole-state.json"))
}

func apiClient() *hrapi.Client {
	cfg := hrapi.DefaultConfigFromEnv()
	cfg.Token = hrapi.StoredToken(tokenStore(), tokenstore.TokenKey)
	cfg.Logger = logging.GetLogger()
	return hrapi.New(cfg)
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
