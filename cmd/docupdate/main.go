// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Command docupdate applies update specifications to documents
// and executes write batches against an in-memory collection.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/FerretDB/docupdate/internal/batch"
	"github.com/FerretDB/docupdate/internal/bson"
	"github.com/FerretDB/docupdate/internal/handler"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/memstore"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/update"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/logging"
	"github.com/FerretDB/docupdate/internal/util/must"
	"github.com/FerretDB/docupdate/internal/wire"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
//nolint:lll // some tags are long
var cli struct {
	Log struct {
		Level  string `default:"info"    help:"${help_log_level}"`
		Format string `default:"console" help:"${help_log_format}"                  enum:"${enum_log_format}"`
		UUID   bool   `default:"false"   help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	DumpMetrics bool `default:"false" help:"Dump Prometheus metrics to stderr on exit."`

	Apply applyCmd `cmd:"" default:"withargs" help:"Apply an update to a single document."`
	Batch batchCmd `cmd:""                    help:"Execute write batches against an in-memory collection."`
}

// applyCmd represents flags of the apply command.
//
//nolint:lll // some tags are long
type applyCmd struct {
	Doc      string `required:"" help:"Document as Extended JSON."`
	Update   string `required:"" help:"Update specification as Extended JSON."`
	ShardKey string `default:"" help:"Shard key pattern as Extended JSON."`
	Upsert   bool   `default:"false" help:"Apply as an insert of a new document ($setOnInsert is applied)." negatable:""`
}

// batchCmd represents flags of the batch command.
//
// All requests operate on a single collection regardless of their namespaces.
//
//nolint:lll // some tags are long
type batchCmd struct {
	Docs     string   `help:"File with initial documents, one Extended JSON document per line." type:"existingfile"`
	Command  []string `help:"insert, update, or delete command as Extended JSON; may be repeated."`
	Wire     string   `help:"File with legacy OP_INSERT, OP_UPDATE, and OP_DELETE messages." type:"existingfile"`
	ShardKey string   `default:"" help:"Shard key pattern as Extended JSON."`
}

// Additional variables for the kong parsers.
var (
	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	logFormats = []string{"console", "json"}

	kongOptions = []kong.Option{
		kong.Vars{
			"enum_log_format": strings.Join(logFormats, ","),
			"help_log_format": fmt.Sprintf("Log format: '%s'.", strings.Join(logFormats, "', '")),
			"help_log_level":  fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),
		},
		kong.DefaultEnvars("DOCUPDATE"),
	}
)

func main() {
	kctx := kong.Parse(&cli, kongOptions...)

	os.Exit(run(kctx.Command(), os.Stdout))
}

// setupLogger setups zap logger.
func setupLogger() *zap.Logger {
	level, err := zapcore.ParseLevel(cli.Log.Level)
	if err != nil {
		log.Fatal(err)
	}

	var logUUID string
	if cli.Log.UUID {
		logUUID = uuid.NewString()
	}

	logging.Setup(level, cli.Log.Format, logUUID)

	return zap.L()
}

// dumpMetrics dumps all Prometheus metrics to stderr.
func dumpMetrics(g prometheus.Gatherer) {
	mfs := must.NotFail(g.Gather())

	for _, mf := range mfs {
		must.NotFail(expfmt.MetricFamilyToText(os.Stderr, mf))
	}
}

// run executes the given command and returns the process exit code.
func run(command string, w io.Writer) int {
	logger := setupLogger()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := prometheus.NewRegistry()

	if cli.DumpMetrics {
		defer dumpMetrics(reg)
	}

	var err error

	switch command {
	case "apply":
		err = cli.Apply.run(w, logger, reg)
	case "batch":
		err = cli.Batch.run(ctx, w, logger, reg)
	default:
		panic(fmt.Sprintf("unhandled command %q", command))
	}

	if err != nil {
		logger.Debug("Command failed", zap.String("command", command), zap.Error(err))
		writeError(w, err)

		return 1
	}

	return 0
}

// writeError writes the error document for err.
func writeError(w io.Writer, err error) {
	pe, _ := handlererrors.ProtocolError(err)
	writeDocument(w, pe.Document(), false)
}

// writeDocument writes doc as a single line of Extended JSON.
func writeDocument(w io.Writer, doc *types.Document, canonical bool) {
	fmt.Fprintln(w, must.NotFail(bson.ToExtJSON(doc, canonical)))
}

// parseDocument parses Extended JSON value of the given flag.
func parseDocument(flag, s string) (*types.Document, error) {
	doc, err := bson.FromExtJSON(s)
	if err != nil {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrFailedToParse,
			fmt.Sprintf("Invalid --%s: %s", flag, lazyerrors.UnwrapAll(err)),
			flag,
		)
	}

	return doc, nil
}

// parseShardKey returns the shard key pattern, or nil if s is empty.
func parseShardKey(s string) (*update.ShardKeyPattern, error) {
	if s == "" {
		return nil, nil
	}

	doc, err := parseDocument("shard-key", s)
	if err != nil {
		return nil, err
	}

	return update.NewShardKeyPattern(doc)
}

// run applies the update and writes the post-image as canonical Extended JSON
// followed by the shard key affect flag.
func (c *applyCmd) run(w io.Writer, l *zap.Logger, reg prometheus.Registerer) error {
	doc, err := parseDocument("doc", c.Doc)
	if err != nil {
		return err
	}

	spec, err := parseDocument("update", c.Update)
	if err != nil {
		return err
	}

	pattern, err := parseShardKey(c.ShardKey)
	if err != nil {
		return err
	}

	m := update.NewMetrics()
	reg.MustRegister(m)

	d := update.NewDriver(&update.DriverOpts{
		L:       l.Named("update"),
		Metrics: m,
	})

	d.RefreshShardKeyPattern(pattern)

	if err = d.Parse(spec); err != nil {
		return err
	}

	pre := doc.DeepCopy()

	if err = d.Update(doc, &update.ApplyParams{Insert: c.Upsert}); err != nil {
		return err
	}

	if !c.Upsert && pattern.Len() > 0 {
		if err = d.CheckShardKeysUnaltered(pre, doc); err != nil {
			return err
		}
	}

	writeDocument(w, doc, true)
	fmt.Fprintf(w, "affectsShardKey: %t\n", d.ModsAffectShardKeys())

	return nil
}

// readDocuments reads Extended JSON documents from file, one per line.
func readDocuments(file string) ([]*types.Document, error) {
	if file == "" {
		return nil, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	defer f.Close() //nolint:errcheck // read-only

	var res []*types.Document

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), wire.MaxMsgLen)

	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		doc, err := parseDocument("docs", line)
		if err != nil {
			return nil, lazyerrors.Errorf("line %d: %w", n, err)
		}

		res = append(res, doc)
	}

	if err = s.Err(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// run executes commands and legacy messages, writing replies, last errors,
// and finally all documents of the collection.
func (c *batchCmd) run(ctx context.Context, w io.Writer, l *zap.Logger, reg prometheus.Registerer) error {
	pattern, err := parseShardKey(c.ShardKey)
	if err != nil {
		return err
	}

	docs, err := readDocuments(c.Docs)
	if err != nil {
		return err
	}

	coll, err := memstore.New("docupdate.cli", docs...)
	if err != nil {
		return err
	}

	h := handler.New(&handler.NewOpts{
		L:        l.Named("handler"),
		Metrics:  update.NewMetrics(),
		ShardKey: pattern,
	})
	reg.MustRegister(h)

	for _, s := range c.Command {
		cmd, err := parseDocument("command", s)
		if err != nil {
			return err
		}

		req, err := batch.FromCommand(cmd)
		if err != nil {
			return err
		}

		resp := h.Batch(ctx, req, coll)
		writeDocument(w, resp.Document(req.Kind), false)
	}

	if c.Wire != "" {
		if err = c.runWire(ctx, w, l, h, coll); err != nil {
			return err
		}
	}

	for _, doc := range coll.All() {
		writeDocument(w, doc, true)
	}

	return nil
}

// runWire executes legacy write messages from the wire file,
// writing the last error state after each one.
func (c *batchCmd) runWire(ctx context.Context, w io.Writer, l *zap.Logger, h *handler.Handler, coll handler.Collection) error {
	f, err := os.Open(c.Wire)
	if err != nil {
		return lazyerrors.Error(err)
	}

	defer f.Close() //nolint:errcheck // read-only

	r := bufio.NewReader(f)

	var le batch.LastError

	for {
		header, body, err := wire.ReadMessage(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if ce := l.Check(zap.DebugLevel, "Legacy message"); ce != nil {
			ce.Write(zap.Stringer("header", header), zap.Stringer("body", body))
		}

		req, err := batch.FromMessage(header, body)
		if err != nil {
			return err
		}

		resp := h.Batch(ctx, req, coll)
		batch.ToLastError(req, resp, &le)

		writeDocument(w, le.Document(), false)
	}
}
