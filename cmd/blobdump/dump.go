package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trillium/shinobi/pkg/bincode"
	"github.com/trillium/shinobi/pkg/shinobi"
	"github.com/trillium/shinobi/pkg/xshin"
)

var (
	ErrUnknownKind   = errors.New("unknown blob kind")
	ErrUnknownFormat = errors.New("unknown output format")
	ErrDecodeFailed  = errors.New("blob could not be decoded")
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type options struct {
	kind   string
	format string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "blobdump FILE",
		Short: "Decode a saved xshin blob and print it with its diagnostics",
		Long: "Decode an overview, pool or non_pool_voters blob from disk.\n" +
			"The kind is taken from the archive file name (<kind>_<pool id>.bin) unless --kind is given.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(out, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "kind", "k", "", "blob kind: overview, pool or non_pool_voters")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json or yaml")

	return cmd
}

// document is what blobdump prints. Voter maps are re-keyed by base58 so YAML
// output stays readable.
type document struct {
	File        string       `json:"file" yaml:"file"`
	Kind        string       `json:"kind" yaml:"kind"`
	Bytes       int          `json:"bytes" yaml:"bytes"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics []diagnostic `json:"diagnostics" yaml:"diagnostics"`

	Overview      *shinobi.Overview      `json:"overview,omitempty" yaml:"overview,omitempty"`
	Pool          *shinobi.Pool          `json:"pool,omitempty" yaml:"pool,omitempty"`
	NonPoolVoters *shinobi.NonPoolVoters `json:"non_pool_voters,omitempty" yaml:"non_pool_voters,omitempty"`
	Voters        any                    `json:"-" yaml:"voters,omitempty"`
}

type diagnostic struct {
	Severity  string `json:"severity" yaml:"severity"`
	Kind      string `json:"kind" yaml:"kind"`
	Offset    int    `json:"offset" yaml:"offset"`
	Field     string `json:"field" yaml:"field"`
	Validator string `json:"validator,omitempty" yaml:"validator,omitempty"`
	Message   string `json:"message" yaml:"message"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func run(out io.Writer, path string, opts options) error {
	if opts.format != formatJSON && opts.format != formatYAML {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.format)
	}

	kind, err := blobKind(path, opts.kind)
	if err != nil {
		return err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc, decodeErr := decode(blob, kind)
	doc.File = path

	if err := write(out, doc, opts.format); err != nil {
		return err
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: %w", ErrDecodeFailed, decodeErr)
	}
	return nil
}

// blobKind returns the explicit kind or derives it from an archive file name
func blobKind(path, explicit string) (xshin.BlobKind, error) {
	if explicit != "" {
		for _, k := range xshin.BlobKinds {
			if string(k) == explicit {
				return k, nil
			}
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, explicit)
	}

	name := filepath.Base(path)
	for _, k := range xshin.BlobKinds {
		if strings.HasPrefix(name, string(k)+"_") {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: cannot tell the kind of %s, use --kind", ErrUnknownKind, name)
}

func decode(blob []byte, kind xshin.BlobKind) (document, error) {
	collector := bincode.NewCollector()
	sink := bincode.WithSink(collector)
	doc := document{Kind: string(kind), Bytes: len(blob)}

	var err error
	switch kind {
	case xshin.BlobOverview:
		var o shinobi.Overview
		if o, err = shinobi.DecodeOverview(blob, sink); err == nil {
			doc.Overview = &o
		}
	case xshin.BlobPool:
		var p shinobi.Pool
		if p, err = shinobi.DecodePool(blob, sink); err == nil {
			doc.Pool = &p
			doc.Voters = byBase58(p.Voters)
		}
	case xshin.BlobNonPoolVoters:
		var n shinobi.NonPoolVoters
		if n, err = shinobi.DecodeNonPoolVoters(blob, sink); err == nil {
			doc.NonPoolVoters = &n
			doc.Voters = byBase58(n.Voters)
		}
	}
	if err != nil {
		doc.Error = err.Error()
	}

	doc.Diagnostics = toDiagnostics(collector.Diagnostics())
	return doc, err
}

func byBase58[V any](voters map[solana.PublicKey]V) map[string]V {
	out := make(map[string]V, len(voters))
	for k, v := range voters {
		out[k.String()] = v
	}
	return out
}

func toDiagnostics(ds []bincode.Diagnostic) []diagnostic {
	out := make([]diagnostic, len(ds))
	for i, d := range ds {
		out[i] = diagnostic{
			Severity:  d.Severity.String(),
			Kind:      string(d.Kind),
			Offset:    d.Offset,
			Field:     d.Field,
			Validator: d.Validator,
			Message:   d.Message,
		}
		if d.Err != nil {
			out[i].Error = d.Err.Error()
		}
	}
	return out
}

func write(out io.Writer, doc document, format string) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
