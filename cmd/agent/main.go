package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/Divas-Gupta30/agentic-rag/internal/config"
	"github.com/Divas-Gupta30/agentic-rag/internal/ingest"
	"github.com/Divas-Gupta30/agentic-rag/internal/lightrag"
	"github.com/Divas-Gupta30/agentic-rag/internal/llm"
	"github.com/Divas-Gupta30/agentic-rag/internal/tools"
	"github.com/Divas-Gupta30/agentic-rag/internal/websearch"
	"github.com/Divas-Gupta30/agentic-rag/internal/workflow"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "query":
		err = runQuery(cfg, os.Args[2:])
	case "ingest":
		err = runIngest(cfg, os.Args[2:])
	case "status":
		err = runStatus(cfg)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		bad.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: agent <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  query  -q <question>   Answer a question through the retrieval workflow")
	fmt.Fprintln(os.Stderr, "  ingest -path <dir>     Load documents from a directory into the knowledge base")
	fmt.Fprintln(os.Stderr, "  status                 Show knowledge base status")
}

func runQuery(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	q := fs.String("q", "", "question to answer")
	fs.Parse(args)
	if *q == "" {
		return fmt.Errorf("the -q flag is required")
	}

	deps := workflow.Deps{
		LLM:       llm.NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Temperature),
		Retriever: lightrag.New(cfg.LightRAGURL),
		Tools:     tools.NewInvoker(cfg.WeatherServiceURL, cfg.MarketServiceURL),
	}
	if cfg.TavilyAPIKey != "" {
		deps.Searcher = websearch.NewTavily(cfg.TavilyAPIKey)
	}
	engine := workflow.New(workflow.Config{
		MaxRetries:          cfg.MaxRetries,
		AcceptanceThreshold: cfg.AcceptanceThreshold,
	}, deps)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	heading.Printf("Question: %s\n\n", *q)
	resp := engine.Run(ctx, *q)

	fmt.Println(resp.Answer)
	fmt.Println()
	if resp.Confidence >= 0.7 {
		good.Printf("Confidence: %.2f\n", resp.Confidence)
	} else {
		warn.Printf("Confidence: %.2f\n", resp.Confidence)
	}
	if len(resp.Sources) > 0 {
		fmt.Printf("Sources: %v\n", resp.Sources)
	}
	if resp.Retries > 0 {
		warn.Printf("Retries: %d\n", resp.Retries)
	}
	if resp.Grading != nil {
		fmt.Printf("Grading: relevancy %.2f, faithfulness %.2f, context %.2f, coherence %.2f\n",
			resp.Grading.Relevancy, resp.Grading.Faithfulness,
			resp.Grading.ContextQuality, resp.Grading.Coherence)
	}
	return nil
}

func runIngest(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("path", "", "directory of .txt, .md, or .pdf files")
	fs.Parse(args)
	if *path == "" {
		return fmt.Errorf("the -path flag is required")
	}

	docs, skipped, err := ingest.LoadDir(*path)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		warn.Printf("Skipped %s\n", s)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no readable documents found in %s", *path)
	}

	client := lightrag.New(cfg.LightRAGURL)
	batch := make([]lightrag.Document, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, lightrag.Document{
			Text:     d.Text,
			Metadata: map[string]string{"path": d.Path},
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := client.BatchInsert(ctx, batch)
	if err != nil {
		return fmt.Errorf("batch insert failed: %w", err)
	}
	good.Printf("Ingested %d documents (%d entities, %d relationships extracted)\n",
		result.DocumentsProcessed, result.TotalEntities, result.TotalRelationships)
	return nil
}

func runStatus(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := lightrag.New(cfg.LightRAGURL).CheckStatus(ctx)
	if err != nil {
		return fmt.Errorf("knowledge base unreachable at %s: %w", cfg.LightRAGURL, err)
	}

	heading.Println("Knowledge Base Status")
	if status.Available {
		good.Println("  available: yes")
	} else {
		warn.Println("  available: no")
	}
	fmt.Printf("  documents:     %d\n", status.Documents)
	fmt.Printf("  entities:      %d\n", status.Entities)
	fmt.Printf("  relationships: %d\n", status.Relationships)
	return nil
}
