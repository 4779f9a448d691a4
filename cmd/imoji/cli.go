package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/imoji"
	"github.com/dmitrymomot/imoji/pkg/config"
	"github.com/dmitrymomot/imoji/pkg/logger"
)

// settings are the CLI-only knobs. Flags win over the environment.
type settings struct {
	LogLevel  string `env:"IMOJI_LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"IMOJI_LOG_FORMAT" envDefault:"text"`
}

type cli struct {
	configFile string
	envFiles   []string
	logLevel   string
	logFormat  string

	log  *slog.Logger
	cfg  imoji.Config
	sess *imoji.Session
}

func (c *cli) setup(cmd *cobra.Command) error {
	if len(c.envFiles) > 0 {
		if err := config.LoadEnv(c.envFiles...); err != nil {
			return err
		}
	}

	var s settings
	if err := config.Load(&s); err != nil {
		return err
	}
	if c.logLevel != "" {
		s.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		s.LogFormat = c.logFormat
	}
	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	format := logger.Format(s.LogFormat)
	if format != logger.FormatText && format != logger.FormatJSON {
		return fmt.Errorf("invalid log format %q", s.LogFormat)
	}
	c.log = logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(cmd.ErrOrStderr()),
	)

	if c.configFile != "" {
		c.cfg, err = imoji.LoadConfigFile(c.configFile)
	} else {
		c.cfg, err = imoji.LoadConfig()
	}
	return err
}

// session opens the Session lazily so that --help never touches the disk.
func (c *cli) session(opts ...imoji.Option) (*imoji.Session, error) {
	if c.sess != nil {
		return c.sess, nil
	}
	policy, err := c.cfg.StoragePolicy()
	if err != nil {
		return nil, err
	}
	all := append([]imoji.Option{imoji.WithConfig(c.cfg), imoji.WithLogger(c.log)}, opts...)
	c.sess, err = imoji.New(policy, all...)
	return c.sess, err
}

func (c *cli) close() error {
	if c.sess == nil {
		return nil
	}
	err := c.sess.Close()
	c.sess = nil
	return err
}

// await blocks until op finishes, canceling it when ctx ends first.
func await(ctx context.Context, op *imoji.Operation) error {
	if err := op.Wait(ctx); err != nil {
		op.Cancel()
		return err
	}
	return nil
}

// listing prints a streamed result set as a table.
type listing struct {
	w     *tabwriter.Writer
	total int
	err   error
	rows  map[int]*imoji.Imoji
	fails map[int]error
}

func newListing(out io.Writer) *listing {
	return &listing{
		w:     tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
		rows:  map[int]*imoji.Imoji{},
		fails: map[int]error{},
	}
}

func (l *listing) resultSet(count int, err error) {
	l.total, l.err = count, err
}

func (l *listing) item(im *imoji.Imoji, index int, err error) {
	if err != nil {
		if im == nil && l.err == nil {
			l.err = err
			return
		}
		l.fails[index] = err
	}
	if im != nil {
		l.rows[index] = im
	}
}

func (l *listing) flush() error {
	if l.err != nil {
		return l.err
	}
	fmt.Fprintln(l.w, "#\tID\tTAGS\tSTATUS")
	for i := range max(l.total, len(l.rows)) {
		im, ok := l.rows[i]
		if !ok {
			continue
		}
		status := "ok"
		if err := l.fails[i]; err != nil {
			status = err.Error()
		}
		fmt.Fprintf(l.w, "%d\t%s\t%v\t%s\n", i, im.ID(), im.Tags(), status)
	}
	return l.w.Flush()
}

func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil
	}
	return &v
}

func writeFile(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if path == "" {
		return errors.New("output path is required")
	}
	return os.WriteFile(path, data, 0o644)
}
