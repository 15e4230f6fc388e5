package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/influxwire/goinflux"
)

func main() {
	query := flag.String("q", "SELECT * FROM cpu_load GROUP BY host LIMIT 1000", "query to run")
	chunkSize := flag.Int("chunk-size", 100, "rows per chunk")
	if !flag.Parsed() {
		flag.Parse()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer func() {
		signal.Stop(c)
		cancel()
	}()
	go func() {
		<-c
		log.Println("Caught signal, canceling...")
		cancel()
	}()

	// connections.toml under GOINFLUX_HOME
	cfg, err := goinflux.LoadConnectionConfig()
	if err != nil {
		log.Fatalf("failed to load connection config. err: %v", err)
	}
	client, err := goinflux.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to create client. err: %v", err)
	}
	defer client.Close()

	rs, err := client.QueryPoints(ctx, *query, &goinflux.QueryOptions{
		Chunked:   true,
		ChunkSize: *chunkSize,
		Epoch:     goinflux.Millisecond,
	})
	if err != nil {
		log.Fatalf("failed to run a query. %v, err: %v", *query, err)
	}
	defer rs.Close()

	for {
		ok, err := rs.NextResult(ctx)
		if err != nil {
			log.Fatalf("failed to read result. err: %v", err)
		}
		if !ok {
			break
		}
		info := rs.Result()
		if info.Err != "" {
			fmt.Printf("statement %v failed: %v\n", info.StatementID, info.Err)
			continue
		}
		for {
			ok, err = rs.NextSeries(ctx)
			if err != nil {
				log.Fatalf("failed to read series. err: %v", err)
			}
			if !ok {
				break
			}
			series := rs.Series()
			rows, batches := 0, 0
			for {
				ok, err = rs.NextBatch(ctx)
				if err != nil {
					log.Fatalf("failed to read batch. err: %v", err)
				}
				if !ok {
					break
				}
				batches++
				rows += len(rs.Batch())
			}
			fmt.Printf("statement %v, series %v %v: %v rows in %v batches\n",
				info.StatementID, series.Name, series.Tags, rows, batches)
		}
	}
}
