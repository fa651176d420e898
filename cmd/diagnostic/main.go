// File: cmd/diagnostic/main.go
//
// diagnostic checks the configured completion upstream: one streamed reply
// and one title-style completion, printed as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iyunix/go-chatstream/internal/config"
	"github.com/iyunix/go-chatstream/internal/logging"
	"github.com/iyunix/go-chatstream/internal/services/ai"
	"github.com/iyunix/go-chatstream/internal/services/chat"
)

func main() {
	prompt := flag.String("prompt", "What is the answer to life, universe and everything?", "prompt to send")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	titleModel := flag.String("title-model", "", "model for the title completion (default TITLE_MODEL)")
	flag.Parse()

	logger := logging.NewLogger("chatstream-diagnostic")
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if !cfg.HasUpstream() {
		fmt.Println("OPENAI_API_KEY is not set; the stub provider will answer.")
	}

	aiConfig := ai.ConfigFromApp(cfg)
	aiConfig.RequestsPerSecond = 0
	gateway := ai.NewGatewayFromConfig(aiConfig, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	turns := []ai.Turn{{Role: ai.RoleUser, Content: *prompt}}

	fmt.Printf("Streaming from %s:\n", aiConfig.StreamModel)
	start := time.Now()
	fragments := 0
	var reply string
	for fragment := range gateway.CompleteStreaming(ctx, turns) {
		fragments++
		reply += fragment
		fmt.Print(fragment)
	}
	fmt.Printf("\n(%d fragments in %s)\n", fragments, time.Since(start).Round(time.Millisecond))

	opts := []ai.CompleteOption{ai.WithSystemPrompt(chat.TitleSystemPrompt), ai.WithMaxTokens(20)}
	model := aiConfig.CompleteModel
	if *titleModel != "" {
		model = *titleModel
		opts = append(opts, ai.WithModel(model))
	}
	title := gateway.Complete(ctx, turns, opts...)
	fmt.Printf("Title from %s: %q -> %q\n", model, title, chat.CleanTitle(title))

	if reply == ai.FailureText || title == ai.FailureText {
		fmt.Println("Upstream check failed; see the log above for the cause.")
		os.Exit(1)
	}
	fmt.Println("Upstream check passed.")
}
