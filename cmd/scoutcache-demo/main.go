// Command scoutcache-demo drives a Cache against an in-memory fake segment
// store from the CLI, for interactively exercising lookups, mutations, and
// flushes without a real filesystem backend. The wiring is a
// signal-cancelable context, a urfave/cli app, a go-log logger, and an
// optional otel stdout tracer.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"github.com/urfave/cli/v2"

	"github.com/rpcpool/scoutcache/cache"
	"github.com/rpcpool/scoutcache/key"
	"github.com/rpcpool/scoutcache/observer"
	"github.com/rpcpool/scoutcache/segment"
)

var log = logging.Logger("scoutcache-demo")

var gitCommitSHA = ""

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-interrupt:
			fmt.Println()
			log.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "scoutcache-demo",
		Version:     gitCommitSHA,
		Description: "interactive REPL over an in-memory item cache backed by a fake segment store",
		Commands: []*cli.Command{
			newCmdRepl(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCmdRepl() *cli.Command {
	return &cli.Command{
		Name:        "repl",
		Description: "start an interactive session against a fresh mount",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "trace-stdout", Usage: "print otel spans to stdout"},
			&cli.IntFlag{Name: "segment-capacity", Value: 8, Usage: "max items per simulated segment"},
		},
		Action: func(c *cli.Context) error {
			var opts []cache.Option
			if c.Bool("trace-stdout") {
				shutdown, err := initStdoutTracing(c.Context)
				if err != nil {
					return err
				}
				defer shutdown()
			}
			opts = append(opts, cache.WithObserver(observer.NewPrometheusObserver("scoutcache_demo")))

			mountID := uuid.New()
			log.Infow("mounting", "mount_id", mountID.String())

			store := newFakeSegmentStore(c.Int("segment-capacity"))
			ch := cache.Setup(store, opts...)
			return runRepl(c.Context, ch, store)
		},
	}
}

func initStdoutTracing(ctx context.Context) (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}

// fakeSegmentStore is a toy segment.Reader + segment.Writer pair backed by
// a sorted in-memory table, standing in for the on-disk log segments that
// are explicitly out of this cache's scope.
type fakeSegmentStore struct {
	maxItems int
	rows     map[string][]byte
}

func newFakeSegmentStore(maxItems int) *fakeSegmentStore {
	return &fakeSegmentStore{maxItems: maxItems, rows: make(map[string][]byte)}
}

func (s *fakeSegmentStore) ReadItems(_ context.Context, start, end key.Key, into segment.BatchSink) error {
	var ks []string
	for k := range s.rows {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	for _, k := range ks {
		kk := key.Key(k)
		if key.Compare(kk, start) >= 0 && key.Compare(kk, end) <= 0 {
			if err := into.AddBatch(kk, s.rows[k], false); err != nil {
				return err
			}
		}
	}
	return into.InsertBatch(start, end)
}

func (s *fakeSegmentStore) FitsSingle(nr int, _, _ int64) bool {
	return nr <= s.maxItems
}

func (s *fakeSegmentStore) FirstItem(k key.Key, val []byte, flags segment.ItemFlags, _ int, _ int64) error {
	return s.AppendItem(k, val, flags)
}

func (s *fakeSegmentStore) AppendItem(k key.Key, val []byte, flags segment.ItemFlags) error {
	if flags&segment.FlagDeletion != 0 {
		delete(s.rows, string(k))
		return nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	s.rows[string(k)] = cp
	return nil
}

func runRepl(ctx context.Context, c *cache.Cache, store *fakeSegmentStore) error {
	fmt.Println("scoutcache-demo: get KEY | set KEY VAL | del KEY | flush | stats | quit")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get KEY")
				continue
			}
			buf := make([]byte, 4096)
			n, err := c.Lookup(ctx, key.Key(fields[1]), buf)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("%s\n", buf[:n])
		case "set":
			if len(fields) != 3 {
				fmt.Println("usage: set KEY VAL")
				continue
			}
			if err := c.Update(ctx, key.Key(fields[1]), []byte(fields[2]), false); errors.Is(err, cache.ErrNotFound) {
				if err := c.Create(key.Key(fields[1]), []byte(fields[2]), false); err != nil {
					fmt.Println("error:", err)
				}
				continue
			} else if err != nil {
				fmt.Println("error:", err)
			}
		case "del":
			if len(fields) != 2 {
				fmt.Println("usage: del KEY")
				continue
			}
			if err := c.Delete(ctx, key.Key(fields[1])); err != nil {
				fmt.Println("error:", err)
			}
		case "flush":
			n, err := c.DirtySeg(store)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Printf("flushed %d items\n", n)
		case "stats":
			fmt.Println(c.Stats())
		case "quit", "exit":
			return nil
		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
