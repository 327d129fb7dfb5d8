package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/client/client"
	"github.com/dmitrijs2005/qborelay/internal/filex"
	"github.com/dmitrijs2005/qborelay/internal/netx"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUsage is returned for unknown commands and wrong operand counts.
var ErrUsage = errors.New("usage")

const usage = `Usage: qborelay [-a addr] [-t token] [-timeout sec] <command>

Commands:
  companies                    list connected companies
  connect                      print the consent URL for a new company
  query <realm-id> <sql>       run a query against one company
  query-all [-limit n] <sql>   run a query against every company
  export [-limit n] [-o dir] <sql>
                               run query-all, upload the result and print a download URL;
                               with -o the export is also saved into dir`

type App struct {
	tools   client.Tools
	out     io.Writer
	timeout time.Duration

	download func(ctx context.Context, url string, w io.Writer) (int64, error)
}

func NewApp(tools client.Tools, out io.Writer, timeout time.Duration) *App {
	return &App{
		tools:   tools,
		out:     out,
		timeout: timeout,
		download: func(ctx context.Context, url string, w io.Writer) (int64, error) {
			return netx.DownloadPresignedURL(ctx, nil, url, w)
		},
	}
}

// Run executes the command in args and prints its reply.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.usageError("no command given")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd, rest := args[0], args[1:]

	var (
		res *structpb.Struct
		err error
	)

	switch cmd {
	case "help", "-h", "--help":
		_, err = fmt.Fprintln(a.out, usage)
		return err

	case "companies":
		if len(rest) != 0 {
			return a.usageError("companies takes no arguments")
		}
		res, err = a.tools.ListCompanies(ctx)

	case "connect":
		if len(rest) != 0 {
			return a.usageError("connect takes no arguments")
		}
		res, err = a.tools.ConnectCompany(ctx)

	case "query":
		if len(rest) < 2 {
			return a.usageError("query needs a realm id and a query")
		}
		res, err = a.tools.QueryCompany(ctx, rest[0], strings.Join(rest[1:], " "))

	case "query-all":
		fa, perr := parseFanOut(rest, false)
		if perr != nil {
			return a.usageError(cmd + ": " + perr.Error())
		}
		res, err = a.tools.QueryAll(ctx, fa.sql, fa.limit)

	case "export":
		fa, perr := parseFanOut(rest, true)
		if perr != nil {
			return a.usageError(cmd + ": " + perr.Error())
		}
		res, err = a.tools.ExportAll(ctx, fa.sql, fa.limit)
		if err == nil && fa.outDir != "" {
			if err = a.print(res); err != nil {
				return err
			}
			return a.save(ctx, res, fa.outDir)
		}

	default:
		return a.usageError("unknown command " + cmd)
	}

	if err != nil {
		return err
	}
	return a.print(res)
}

type fanOutArgs struct {
	sql    string
	limit  int
	outDir string
}

// parseFanOut reads [-limit n] [-o dir] <sql...>. A missing limit is 0,
// meaning the server default. -o is only accepted when withOut is set.
func parseFanOut(args []string, withOut bool) (fanOutArgs, error) {
	var fa fanOutArgs

	fs := flag.NewFlagSet("fan-out", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&fa.limit, "limit", 0, "rows per company")
	if withOut {
		fs.StringVar(&fa.outDir, "o", "", "directory to save the export into")
	}

	if err := fs.Parse(args); err != nil {
		return fa, err
	}
	if fa.limit < 0 {
		return fa, errors.New("limit must not be negative")
	}
	if fs.NArg() == 0 {
		return fa, errors.New("a query is required")
	}
	fa.sql = strings.Join(fs.Args(), " ")
	return fa, nil
}

// save downloads the exported document into dir under its object name.
func (a *App) save(ctx context.Context, res *structpb.Struct, dir string) error {
	url := res.GetFields()["url"].GetStringValue()
	key := res.GetFields()["key"].GetStringValue()
	if url == "" || key == "" {
		return errors.New("export reply carries no download link")
	}

	f, err := filex.CreateNew(dir, path.Base(key))
	if err != nil {
		return err
	}

	n, err := a.download(ctx, url, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// CreateNew never overwrites, so drop the partial file for a retry.
		_ = os.Remove(f.Name())
		return fmt.Errorf("save export: %w", err)
	}

	_, err = fmt.Fprintf(a.out, "Saved %d bytes to %s\n", n, f.Name())
	return err
}

func (a *App) print(res *structpb.Struct) error {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(res)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *App) usageError(msg string) error {
	fmt.Fprintln(a.out, usage)
	return fmt.Errorf("%w: %s", ErrUsage, msg)
}
