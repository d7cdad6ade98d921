package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/pgn-report/internal/reportclient"
	"github.com/park285/pgn-report/pkg/reportdto"
)

const samplePGN = `[Event "Smoke test"]
[White "White"]
[Black "Black"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 4. Ba4 Nf6 5. O-O Be7 1-0`

func main() {
	baseURL := flag.String("url", envDefault("REPORT_BASE_URL", "http://localhost:3000"), "report server base URL")
	pgnPath := flag.String("pgn", "", "PGN file to submit (defaults to a short sample game)")
	stream := flag.Bool("stream", true, "use the websocket report endpoint")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	pgnText := samplePGN
	if *pgnPath != "" {
		b, err := os.ReadFile(*pgnPath)
		if err != nil {
			log.Fatalf("read pgn: %v", err)
		}
		pgnText = string(b)
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if v := strings.TrimSpace(os.Getenv("REPORT_AUTH_TOKEN")); v != "" {
			m["Authorization"] = "Bearer " + v
		}
		return m
	}
	client := reportclient.NewClient(*baseURL,
		reportclient.WithHeaderProvider(headers),
		reportclient.WithTimeout(*timeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Println("/healthz ok")

	parsed, err := client.Parse(ctx, pgnText)
	if err != nil {
		log.Fatalf("/parse error: %v", err)
	}
	log.Printf("/parse ok: %d positions, result=%q", len(parsed.Positions), parsed.Result)

	var rep *reportdto.Report
	if *stream {
		rep, err = client.StreamReport(ctx, parsed.Positions, func(done, total int) {
			log.Printf("progress %d/%d", done, total)
		})
	} else {
		rep, err = client.Report(ctx, parsed.Positions)
	}
	if err != nil {
		log.Fatalf("report error: %v", err)
	}
	printReport(rep)
}

func printReport(rep *reportdto.Report) {
	fmt.Printf("report %s (%s)\n", rep.ID, rep.CreatedAt.Format(time.RFC3339))
	if rep.Opening != nil {
		fmt.Printf("opening: %s %s\n", rep.Opening.ECO, rep.Opening.Name)
	}
	for _, p := range rep.Positions {
		if p.Move == nil {
			continue
		}
		fmt.Printf("%3d. %-7s %-10s loss=%-4d acc=%.1f best=%s\n", p.Ply, p.Move.SAN, p.Classification, p.CPLoss, p.Accuracy, p.BestMove)
	}
	fmt.Printf("white: accuracy %.1f, %d inaccuracies, %d mistakes, %d blunders\n",
		rep.Summary.White.Accuracy, rep.Summary.White.Inaccuracies, rep.Summary.White.Mistakes, rep.Summary.White.Blunders)
	fmt.Printf("black: accuracy %.1f, %d inaccuracies, %d mistakes, %d blunders\n",
		rep.Summary.Black.Accuracy, rep.Summary.Black.Inaccuracies, rep.Summary.Black.Mistakes, rep.Summary.Black.Blunders)
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
