// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AleutianAI/openbuilding/cmd/obgraph/config"
	"github.com/AleutianAI/openbuilding/pkg/epjson"
	"github.com/AleutianAI/openbuilding/pkg/graph"
	"github.com/AleutianAI/openbuilding/pkg/idfgraph"
	"github.com/AleutianAI/openbuilding/pkg/telemetry"
	"github.com/AleutianAI/openbuilding/pkg/xmlgraph"
)

// Format is a document syntax obgraph can read and write.
type Format string

const (
	FormatXML    Format = "xml"
	FormatIDF    Format = "idf"
	FormatEPJSON Format = "epjson"
)

var (
	errUnknownFormat      = errors.New("unknown format")
	errUnsupportedConvert = errors.New("unsupported conversion")
)

var extensions = map[string]Format{
	".xml":    FormatXML,
	".gbxml":  FormatXML,
	".idf":    FormatIDF,
	".epjson": FormatEPJSON,
	".json":   FormatEPJSON,
}

var canonicalExt = map[Format]string{
	FormatXML:    ".xml",
	FormatIDF:    ".idf",
	FormatEPJSON: ".epJSON",
}

func parseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatXML, FormatIDF, FormatEPJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", errUnknownFormat, s)
}

// detectFormat returns override if set, otherwise the format implied by
// the file extension.
func detectFormat(path, override string) (Format, error) {
	if override != "" {
		return parseFormat(override)
	}
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: cannot tell the format of %s", errUnknownFormat, path)
}

// readGraph parses path in format f.
func readGraph(ctx context.Context, rec *telemetry.Recorder, path string, f Format) (g *graph.Graph, err error) {
	ctx, op := rec.Start(ctx, "parse", string(f))
	defer func() {
		nodes := 0
		if g != nil {
			nodes = g.NodeCount()
		}
		op.End(ctx, nodes, err)
	}()

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch f {
	case FormatXML:
		doc, err := xmlgraph.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc.Graph(), nil
	case FormatIDF:
		seq, err := idfgraph.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return seq.Graph(), nil
	case FormatEPJSON:
		g, err := epjson.Read(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownFormat, f)
	}
}

// writeGraph renders g, read as format from, in format to.
//
// XML documents only convert to XML. IDF and epJSON convert to each other:
// the record's first field is the object name.
func writeGraph(ctx context.Context, rec *telemetry.Recorder, g *graph.Graph, from, to Format, out config.OutputConfig, w io.Writer) (err error) {
	ctx, op := rec.Start(ctx, "serialize", string(to))
	defer func() { op.End(ctx, g.NodeCount(), err) }()

	switch {
	case to == FormatXML && from == FormatXML:
		opts := []xmlgraph.SerializeOption{xmlgraph.WithIndent(out.Indent)}
		if out.Declaration {
			opts = append(opts, xmlgraph.WithDeclaration())
		}
		return xmlgraph.Wrap(g).Write(w, opts...)
	case to == FormatIDF && from == FormatIDF:
		_, err = idfgraph.Wrap(g).WriteTo(w)
		return err
	case to == FormatIDF && from == FormatEPJSON:
		_, err = objectsToRecords(g).WriteTo(w)
		return err
	case to == FormatEPJSON && from == FormatEPJSON:
		return epjson.Write(g, w)
	case to == FormatEPJSON && from == FormatIDF:
		return epjson.Write(recordsToObjects(idfgraph.Wrap(g)), w)
	default:
		return fmt.Errorf("%w: %s to %s", errUnsupportedConvert, from, to)
	}
}

// recordsToObjects maps each record to an object named by its first field.
// The remaining fields keep their positional keys.
//
// A record whose first field is empty, or already names an earlier object
// of the same type, is named "<label> <position>" instead and keeps F1 as
// a field, so converting back restores it.
func recordsToObjects(seq *idfgraph.Sequence) *graph.Graph {
	out := graph.New(graph.WithCapacity(seq.Len(), 0))
	src := seq.Graph()
	used := make(map[string]map[string]struct{})
	for i, n := range seq.Records() {
		label := seq.Label(n)
		names := used[label]
		if names == nil {
			names = make(map[string]struct{})
			used[label] = names
		}

		name, _ := src.Property(n, idfgraph.FieldKey(1))
		text, _ := name.AsText()
		keepFirst := false
		if _, taken := names[text]; text == "" || taken {
			text = uniqueName(names, label, i+1)
			keepFirst = true
		}
		names[text] = struct{}{}

		props := graph.NewProperties()
		props.Set(epjson.PropID, graph.Text(text))
		src.Properties(n).Range(func(key string, v graph.Value) bool {
			if key != idfgraph.FieldKey(1) || keepFirst {
				props.Set(key, v.Clone())
			}
			return true
		})
		out.AddNode([]string{label}, props)
	}
	return out
}

func uniqueName(names map[string]struct{}, label string, pos int) string {
	for k := pos; ; k++ {
		name := fmt.Sprintf("%s %d", label, k)
		if _, taken := names[name]; !taken {
			return name
		}
	}
}

// objectsToRecords lays objects out as records, name first. Positional
// keys F2..Fn sort numerically ahead of named fields.
func objectsToRecords(g *graph.Graph) *idfgraph.Sequence {
	out := graph.New(graph.WithCapacity(g.NodeCount(), g.NodeCount()))
	var tail graph.NodeID
	for _, n := range g.Nodes() {
		src := g.Properties(n)
		props := graph.NewProperties()
		if id, ok := src.Get(epjson.PropID); ok {
			props.Set(idfgraph.FieldKey(1), id)
		}
		keys := src.Keys()
		sort.SliceStable(keys, func(i, j int) bool {
			a, aok := fieldIndex(keys[i])
			b, bok := fieldIndex(keys[j])
			switch {
			case aok && bok:
				return a < b
			default:
				return aok && !bok
			}
		})
		for _, key := range keys {
			if key == epjson.PropID {
				continue
			}
			v, _ := src.Get(key)
			props.Set(key, v.Clone())
		}
		rec := out.AddNode([]string{g.PrimaryLabel(n)}, props)
		if !tail.IsZero() {
			// both endpoints were just added, so this cannot fail
			_, _ = out.AddEdge(tail, rec, idfgraph.EdgeNext, nil)
		}
		tail = rec
	}
	return idfgraph.Wrap(out)
}

func fieldIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, "F") {
		return 0, false
	}
	i, err := strconv.Atoi(key[1:])
	return i, err == nil && i > 0
}

// outputPath derives the converted file name for input under dir.
func outputPath(input, dir string, to Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+canonicalExt[to])
}
