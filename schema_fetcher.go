package goinflux

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
)

type transportSchemaFetcher struct {
	transport Transport
}

// NewTransportSchemaFetcher returns a SchemaFetcher that runs SHOW TAG KEYS
// and SHOW FIELD KEYS through transport.
func NewTransportSchemaFetcher(transport Transport) SchemaFetcher {
	return &transportSchemaFetcher{transport: transport}
}

func (f *transportSchemaFetcher) FetchSchema(ctx context.Context, database, measurement string) (*MeasurementSchema, error) {
	schema := &MeasurementSchema{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := f.showKeys(gctx, database, "SHOW TAG KEYS FROM "+QuoteIdent(measurement))
		schema.TagKeys = keys
		return err
	})
	g.Go(func() error {
		keys, err := f.showKeys(gctx, database, "SHOW FIELD KEYS FROM "+QuoteIdent(measurement))
		schema.FieldKeys = keys
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return schema, nil
}

// showKeys returns the first column of every row of a SHOW ... KEYS result.
func (f *transportSchemaFetcher) showKeys(ctx context.Context, database, command string) ([]string, error) {
	body, err := f.transport.Query(ctx, &QueryRequest{Command: command, Database: database})
	if err != nil {
		return nil, err
	}
	src := NewJSONObjectSource(body)
	defer src.Close()

	var keys []string
	for {
		resp, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, err
		}
		for _, st := range resp.Results {
			if st.Err != "" {
				return nil, errors.New(st.Err)
			}
			for _, s := range st.Series {
				for _, row := range s.Values {
					if len(row) == 0 {
						continue
					}
					if key, ok := row[0].(string); ok {
						keys = append(keys, key)
					}
				}
			}
		}
	}
}

// QuoteIdent quotes an InfluxQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name) + `"`
}
