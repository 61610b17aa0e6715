package hrconsolecli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/phillip-england/hrconsole/internal/board"
	"github.com/phillip-england/hrconsole/internal/debounce"
	"github.com/phillip-england/hrconsole/internal/hrapi"
	"github.com/phillip-england/hrconsole/internal/logging"
)

const watchHelp = `commands:
  search <term>          filter by employee name or ID
  status <present|absent|all>
  date <YYYY-MM-DD>      exact date, empty to clear
  range <start> <end>    date range
  clear                  reset all filters
  mark <code> [status]   quick mark today for an employee code
  delete <id>            delete a record
  refresh                re-fetch now
  show                   print the current list
  quit`

// watchPrinter writes banner transitions and list summaries as the board changes.
type watchPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	closed  bool
	success string
	errMsg  string
	summary string
}

func (p *watchPrinter) onChange(s board.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if s.Success != p.success {
		p.success = s.Success
		if s.Success != "" {
			fmt.Fprintf(p.out, "ok: %s\n", s.Success)
		}
	}
	if s.Error != p.errMsg {
		p.errMsg = s.Error
		if s.Error != "" {
			fmt.Fprintf(p.out, "error: %s\n", s.Error)
		}
	}
	if s.Loading {
		return
	}
	summary := fmt.Sprintf("%d records, %d employees, rate %d%%, today %d present / %d absent",
		s.Totals.Total, s.UniqueEmployees, s.Totals.Rate, s.Today.Present, s.Today.Absent)
	if summary != p.summary {
		p.summary = summary
		fmt.Fprintln(p.out, summary)
	}
}

func (p *watchPrinter) show(s board.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMPLOYEE\tNAME\tDATE\tSTATUS")
	for _, r := range s.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.EmployeeIDDisplay, r.EmployeeName, r.Date, r.Status)
	}
	_ = tw.Flush()
}

func (p *watchPrinter) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (c *cli) runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(c.stdout)
	delay := fs.Duration("delay", debounce.DefaultDelay, "quiet period before filter edits re-fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := loadEnv(); err != nil {
		return err
	}

	api := apiClient()
	printer := &watchPrinter{out: c.stdout}
	b := board.New(api.Attendance(), api.Employees(), board.Options{
		Delay:    *delay,
		Now:      c.now,
		OnChange: printer.onChange,
		Logger:   logging.GetLogger(),
	})
	defer func() {
		b.Close()
		printer.close()
	}()

	b.Load(c.ctx)
	fmt.Fprintln(c.stdout, `type "help" for commands`)

	scanner := bufio.NewScanner(c.stdin)
	for scanner.Scan() {
		if c.ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		arg := func(i int) string {
			if i < len(fields) {
				return fields[i]
			}
			return ""
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(c.stdout, watchHelp)
		case "search":
			b.SetSearch(strings.Join(fields[1:], " "))
		case "status":
			b.SetStatus(arg(1))
		case "date":
			b.SetDate(arg(1))
		case "range":
			b.SetRange(arg(1), arg(2))
		case "clear":
			b.ClearFilters()
		case "mark":
			status := hrapi.Status(strings.ToLower(arg(2)))
			if !status.Valid() {
				status = hrapi.StatusPresent
			}
			_ = b.QuickMark(c.ctx, arg(1), status)
		case "delete":
			id, err := strconv.ParseInt(arg(1), 10, 64)
			if err != nil || id <= 0 {
				fmt.Fprintln(c.stdout, "error: delete requires a record id")
				continue
			}
			_ = b.Delete(c.ctx, id)
		case "refresh":
			b.Refresh(c.ctx)
		case "show":
			printer.show(b.Snapshot())
		default:
			fmt.Fprintf(c.stdout, "unknown command %q\n", fields[0])
		}
	}
	return scanner.Err()
}
