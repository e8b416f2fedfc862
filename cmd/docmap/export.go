package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"

	"docmap/internal/ctxlog"
	"docmap/internal/docset"
	"docmap/internal/document"
	"docmap/internal/memdb"
	"docmap/internal/schema"
)

// output is what gets printed.
type output struct {
	Set        []any                     `yaml:"set"`
	Operations map[string]map[string]any `yaml:"operations,omitempty"`
}

func export(ctx context.Context, out io.Writer, cfg *config) error {
	logger := ctxlog.FromContext(ctx)

	reg := schema.NewRegistry()

	err := schema.Load(ctx, cfg.SchemaPath, reg)
	if err != nil {
		return err
	}

	class, ok := reg.Lookup(cfg.Class)
	if !ok {
		return fmt.Errorf("class %q is not declared in %s", cfg.Class, cfg.SchemaPath)
	}

	db := memdb.New("docmap")

	if cfg.FixturesPath != "" {
		n, err := loadFixtures(db, cfg.FixturesPath)
		if err != nil {
			return err
		}

		logger.Info("Loaded fixtures", "path", cfg.FixturesPath, "documents", n)
	}

	var raw map[string]any

	err = readYAML(cfg.DataPath, &raw)
	if err != nil {
		return err
	}

	parent := document.Load(raw, document.Options{Database: db, Class: class})

	set, err := docset.Field(ctx, parent, cfg.Field)
	if err != nil {
		return err
	}

	for _, i := range set.Indices() {
		_, err := set.Element(ctx, i)
		if err != nil {
			return err
		}
	}

	if cfg.AddPath != "" {
		err := appendDocuments(ctx, set, cfg.AddPath)
		if err != nil {
			return err
		}
	}

	result := output{Set: set.Export()}
	if cfg.ShowOps {
		result.Operations = parent.Operations(true).Update()
	}

	logger.Debug("Exporting document set", "field", cfg.Field, "length", set.Len(), "references", set.ReferenceCount())

	if cfg.Dump {
		spew.Fdump(out, result)
		return nil
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)

	err = enc.Encode(result)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return enc.Close()
}

// appendDocuments adds every document listed in path to the set, in order.
func appendDocuments(ctx context.Context, set *docset.DocumentSet, path string) error {
	var docs []map[string]any

	err := readYAML(path, &docs)
	if err != nil {
		return err
	}

	for n, fields := range docs {
		doc, err := set.AllocateNew(ctx)
		if err != nil {
			return err
		}

		for k, v := range fields {
			err := doc.Set(k, v)
			if err != nil {
				return fmt.Errorf("document %d of %s: %w", n, path, err)
			}
		}

		i, err := set.AddDocument(doc)
		if err != nil {
			return fmt.Errorf("document %d of %s: %w", n, path, err)
		}

		ctxlog.FromContext(ctx).Info("Appended document", "index", i)
	}

	return nil
}

// loadFixtures inserts the documents of a {collection: [doc, ...]} file.
func loadFixtures(db *memdb.DB, path string) (int, error) {
	var fixtures map[string][]map[string]any

	err := readYAML(path, &fixtures)
	if err != nil {
		return 0, err
	}

	n := 0

	for coll, docs := range fixtures {
		for _, doc := range docs {
			_, err := db.Insert(coll, doc)
			if err != nil {
				return n, err
			}

			n++
		}
	}

	return n, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	err = yaml.Unmarshal(data, v)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}
