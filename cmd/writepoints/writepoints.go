package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/influxwire/goinflux"
)

type cpuLoad struct {
	Host   string
	Region *string
	Core   int
	Usage  float64
	Time   time.Time
}

var cpuLoadSchema = goinflux.MustSchema[cpuLoad]("cpu_load",
	goinflux.StringTag("host", func(r *cpuLoad) *string { return &r.Host }),
	goinflux.NullableStringTag("region", func(r *cpuLoad) **string { return &r.Region }),
	goinflux.IntField("core", func(r *cpuLoad) *int { return &r.Core }),
	goinflux.FloatField("usage", func(r *cpuLoad) *float64 { return &r.Usage }),
	goinflux.Timestamp(func(r *cpuLoad) *time.Time { return &r.Time }),
)

func main() {
	count := flag.Int("n", 10, "number of points to write")
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

	env := func(k string) string {
		if value := os.Getenv(k); value != "" {
			return value
		}
		log.Fatalf("%v environment variable is not set.", k)
		return ""
	}

	cfg, err := goinflux.ParseDSN(env("GOINFLUX_TEST_DSN"))
	if err != nil {
		log.Fatalf("failed to parse dsn. err: %v", err)
	}
	client, err := goinflux.NewClient(cfg)
	if err != nil {
		log.Fatalf("failed to create client. err: %v", err)
	}
	defer client.Close()

	hostname, _ := os.Hostname()
	region := "local"
	now := time.Now()
	rows := make([]*cpuLoad, 0, *count)
	for i := 0; i < *count; i++ {
		rows = append(rows, &cpuLoad{
			Host:   hostname,
			Region: &region,
			Core:   i % 4,
			Usage:  rand.Float64() * 100,
			Time:   now.Add(time.Duration(i-*count) * time.Second),
		})
	}
	if err = goinflux.WriteRows(ctx, client, goinflux.RowMetadata[cpuLoad](cpuLoadSchema), rows, nil); err != nil {
		log.Fatalf("failed to write rows. err: %v", err)
	}

	points := []*goinflux.DynamicPoint{{
		Measurement: "heartbeat",
		Tags:        map[string]string{"host": hostname},
		Fields:      map[string]any{"alive": true, "rows": int64(len(rows))},
		Time:        now,
	}}
	if err = client.WritePoints(ctx, points, nil); err != nil {
		log.Fatalf("failed to write points. err: %v", err)
	}
	fmt.Printf("Congrats! You have successfully written %v rows to %v!\n", len(rows)+len(points), cfg.Database)
}
