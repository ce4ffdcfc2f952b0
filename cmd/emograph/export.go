package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/force"
)

// exportDoc is the document written by export.
type exportDoc struct {
	DataType string        `json:"type" yaml:"type"`
	Name     string        `json:"name" yaml:"name"`
	Params   force.Params  `json:"params" yaml:"params"`
	Frames   []exportFrame `json:"frames" yaml:"frames"`
}

// exportFrame is one snapshot with its render attributes.
type exportFrame struct {
	Tick      int               `json:"tick" yaml:"tick"`
	Index     int               `json:"index" yaml:"index"`
	Epoch     int               `json:"epoch" yaml:"epoch"`
	Timestamp int               `json:"timestamp" yaml:"timestamp"`
	Nodes     []force.NodeAttrs `json:"nodes" yaml:"nodes"`
	Links     []force.LinkAttrs `json:"links" yaml:"links"`
}

func exportCmd() *cobra.Command {
	var format string
	var ticks int
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the accumulated snapshots of a dataset as JSON or YAML",
		Long: "Step a dataset tick by tick and write every snapshot with its node and link\n" +
			"render attributes. Defaults to one full pass over the frames.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			src, st, err := openSource(cfg)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			ctx := cmd.Context()
			name := initialDataset(ctx, src, cfg)
			if name == "" {
				return fmt.Errorf("no dataset of type %q", cfg.Data.Type)
			}
			doc, err := buildExport(ctx, src, cfg.Data.Type, name, cfg.ForceParams(), cfg.Weights(), ticks)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeExport(w, format, doc); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(os.Stderr, "  %s %d frames -> %s\n", StatusIcon(true), len(doc.Frames), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "number of ticks to export (default: one pass)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

// buildExport loads a dataset and steps it ticks times. ticks <= 0 means one
// tick per frame.
func buildExport(ctx context.Context, src dataset.Source, dataType, name string,
	params force.Params, weights force.Weights, ticks int) (*exportDoc, error) {
	g, err := src.Load(ctx, dataType, name)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", dataType, name, err)
	}
	doc := &exportDoc{DataType: dataType, Name: name, Params: params}
	if g.Empty() {
		return doc, nil
	}
	if ticks <= 0 {
		ticks = len(g.Frames)
	}

	player := anim.NewPlayer(anim.PlayerConfig{Clock: anim.NewManualClock()})
	defer player.Close()
	player.Load(g.Nodes, g.Frames)

	for i := range ticks {
		snap, ok := player.Step()
		if !ok {
			break
		}
		policy := force.NewPolicy(params, weights, snap)
		frame := exportFrame{
			Tick:      i,
			Index:     snap.Index,
			Epoch:     snap.Epoch,
			Timestamp: g.Frames[snap.Index].Timestamp,
			Nodes:     make([]force.NodeAttrs, 0, len(snap.Nodes)),
			Links:     make([]force.LinkAttrs, 0, len(snap.Links)),
		}
		for _, n := range snap.Nodes {
			frame.Nodes = append(frame.Nodes, policy.Node(n))
		}
		for _, l := range snap.Links {
			frame.Links = append(frame.Links, policy.Link(l))
		}
		doc.Frames = append(doc.Frames, frame)
	}
	return doc, nil
}

func writeExport(w io.Writer, format string, doc *exportDoc) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
