// chatcli is a terminal client for a chatstream server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iyunix/go-chatstream/internal/client"
	"github.com/iyunix/go-chatstream/internal/logging"
)

type styles struct {
	prompt lipgloss.Style
	reply  lipgloss.Style
	title  lipgloss.Style
	muted  lipgloss.Style
	err    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		prompt: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(t.Accent)),
		reply:  lipgloss.NewStyle(),
		title:  lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color(t.Accent)),
		muted:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Error)),
	}
}

type session struct {
	api    *client.Client
	bus    *client.TitleBus
	cache  *client.ChatListCache
	styles styles
	logger logging.Logger

	consumer *client.Consumer
	printed  int
}

func main() {
	profilePath := flag.String("profile", defaultProfilePath(), "path to the TOML profile")
	server := flag.String("server", "", "server URL (overrides the profile)")
	save := flag.Bool("save-profile", false, "write the effective profile and exit")
	flag.Parse()

	profile, err := loadProfile(*profilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *server != "" {
		profile.Server = *server
	}
	if *save {
		if err := saveProfile(*profilePath, profile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("profile written to", *profilePath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api, err := client.New(profile.Server)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	s := &session{
		api:    api,
		bus:    client.NewTitleBus(),
		styles: newStyles(profile.Theme),
		logger: logging.NewLogger("chatcli"),
	}
	s.cache = client.NewChatListCache(api.ListChats, client.DefaultListMaxAge, s.bus)
	defer s.cache.Close()

	if profile.Username != "" {
		if err := api.Login(ctx, profile.Username, profile.password()); err != nil {
			fmt.Println(s.styles.err.Render("login failed: " + err.Error()))
		} else {
			fmt.Println(s.styles.muted.Render("signed in as " + profile.Username))
		}
	}
	s.openAnonymous()
	fmt.Println(s.styles.muted.Render("commands: /list /new [title] /open <id> /rename <id> <title> /delete <id> /anon /quit"))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(s.styles.prompt.Render("> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.handle(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Println(s.styles.err.Render(err.Error()))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

var errQuit = errors.New("quit")

func (s *session) handle(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return errQuit
	case "/list":
		return s.list(ctx)
	case "/anon":
		s.openAnonymous()
		return nil
	case "/new":
		chat, _, err := s.api.CreateChat(ctx, strings.TrimSpace(arg), "")
		if err != nil {
			return err
		}
		s.cache.Invalidate()
		s.attach(chat)
		return nil
	case "/open":
		id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return fmt.Errorf("usage: /open <id>")
		}
		chat, err := s.api.GetChat(ctx, uint(id))
		if err != nil {
			return err
		}
		s.attach(chat)
		for _, t := range chat.Messages {
			s.printTurn(t)
		}
		return s.consumer.Resume(ctx)
	case "/rename":
		rawID, title, _ := strings.Cut(strings.TrimSpace(arg), " ")
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil || strings.TrimSpace(title) == "" {
			return fmt.Errorf("usage: /rename <id> <title>")
		}
		chat, err := s.api.RenameChat(ctx, uint(id), strings.TrimSpace(title))
		if err != nil {
			return err
		}
		// The list cache patches itself from the bus.
		s.bus.Publish(client.TitleChanged{ChatID: chat.ID, Title: chat.Title})
		fmt.Println(s.styles.title.Render(fmt.Sprintf("#%d %s", chat.ID, chat.Title)))
		return nil
	case "/delete":
		id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return fmt.Errorf("usage: /delete <id>")
		}
		if err := s.api.DeleteChat(ctx, uint(id)); err != nil {
			return err
		}
		s.cache.Invalidate()
		fmt.Println(s.styles.muted.Render("deleted"))
		return nil
	}

	s.printed = 0
	err := s.consumer.Submit(ctx, line)
	fmt.Println()
	return err
}

func (s *session) list(ctx context.Context) error {
	chats, err := s.cache.Get(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println(s.styles.muted.Render("no chats"))
	}
	for _, c := range chats {
		fmt.Printf("%s %s\n", s.styles.muted.Render(fmt.Sprintf("%4d", c.ID)), c.Title)
	}
	return nil
}

func (s *session) openAnonymous() {
	s.consumer = client.NewConsumer(s.api, s.bus, nil, s.observer(), s.logger)
	fmt.Println(s.styles.muted.Render("anonymous conversation (not saved)"))
}

func (s *session) attach(chat *client.Chat) {
	s.consumer = client.NewConsumer(s.api, s.bus, chat, s.observer(), s.logger)
	fmt.Println(s.styles.title.Render(fmt.Sprintf("#%d %s", chat.ID, chat.Title)))
}

func (s *session) observer() client.Observer {
	return client.Observer{
		OnPartial: func(text string) {
			// Partial text only grows; print what is new.
			if len(text) > s.printed {
				fmt.Print(s.styles.reply.Render(text[s.printed:]))
				s.printed = len(text)
			}
		},
		OnMessage: func(t client.Turn) {
			if t.Type == "error" {
				fmt.Println(s.styles.err.Render(t.Content))
			}
		},
		OnTitle: func(title string) {
			fmt.Println()
			fmt.Print(s.styles.title.Render("title: " + title))
		},
	}
}

func (s *session) printTurn(t client.Turn) {
	switch t.Type {
	case "prompt":
		fmt.Println(s.styles.prompt.Render("> ") + t.Content)
	case "error":
		fmt.Println(s.styles.err.Render(t.Content))
	default:
		fmt.Println(s.styles.reply.Render(t.Content))
	}
}
