package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/gorilla/websocket"

	"github.com/Rosesandthorns/TheShinyArchives/internal/hunting"
	"github.com/Rosesandthorns/TheShinyArchives/internal/importer"
	synchub "github.com/Rosesandthorns/TheShinyArchives/internal/sync"
	"github.com/Rosesandthorns/TheShinyArchives/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

var errUsage = errors.New("usage")

type cli struct {
	client  *http.Client
	baseURL string
	out     io.Writer
}

func main() {
	global := flag.NewFlagSet("shiny", flag.ExitOnError)
	baseURL := global.String("api", envOr("SHINY_API_URL", defaultBaseURL), "API base URL")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	c := &cli{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(*baseURL, "/"),
		out:     os.Stdout,
	}

	if args[0] == "shell" {
		if err := c.shell(context.Background()); err != nil {
			log.Fatalf("shell: %v", err)
		}
		return
	}
	if err := c.run(context.Background(), args); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(1)
		}
		log.Fatalf("%s: %v", args[0], err)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := []string{}
	if len(args) > 2 {
		rest = args[2:]
	}

	switch cmd {
	case "pokemon":
		return c.handlePokemon(ctx, sub, rest)
	case "games":
		return c.handleGames(ctx, sub, rest)
	case "import":
		return c.handleImport(ctx, sub, rest)
	default:
		return errUsage
	}
}

func (c *cli) handlePokemon(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list":
		fs := flag.NewFlagSet("pokemon list", flag.ContinueOnError)
		limit := fs.Int("limit", 20, "page size")
		offset := fs.Int("offset", 0, "offset")
		generation := fs.Int("generation", 0, "generation filter (1-9)")
		typ := fs.String("type", "", "type filter")
		game := fs.Int("game", 0, "game id filter")
		sort := fs.String("sort", "", "id|id-desc|name|name-desc")
		asJSON := fs.Bool("json", false, "print raw JSON")
		if err := fs.Parse(args); err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(*limit))
		q.Set("offset", strconv.Itoa(*offset))
		if *generation > 0 {
			q.Set("generation", strconv.Itoa(*generation))
		}
		if *typ != "" {
			q.Set("type", *typ)
		}
		if *game > 0 {
			q.Set("game", strconv.Itoa(*game))
		}
		if *sort != "" {
			q.Set("sort", *sort)
		}

		var items []models.PokemonWithGames
		if err := c.get(ctx, "/api/pokemon?"+q.Encode(), &items); err != nil {
			return err
		}
		if *asJSON {
			return c.printJSON(items)
		}
		return c.printPokemonTable(items)
	case "search":
		if len(args) == 0 {
			return fmt.Errorf("usage: shiny pokemon search <query>")
		}
		var items []models.PokemonWithGames
		if err := c.get(ctx, "/api/pokemon/search?q="+url.QueryEscape(strings.Join(args, " ")), &items); err != nil {
			return err
		}
		return c.printPokemonTable(items)
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("usage: shiny pokemon show <dex number|name>")
		}
		var p models.PokemonWithGames
		if err := c.get(ctx, "/api/pokemon/"+url.PathEscape(strings.ToLower(args[0])), &p); err != nil {
			return err
		}
		if err := c.printJSON(p); err != nil {
			return err
		}
		if names := p.EvolutionChain.SpeciesNames(); len(names) > 1 {
			fmt.Fprintf(c.out, "evolution: %s\n", strings.Join(names, " -> "))
		}
		return nil
	default:
		return fmt.Errorf("usage: shiny pokemon <list|search|show>")
	}
}

func (c *cli) handleGames(ctx context.Context, sub string, args []string) error {
	if sub == "list" {
		var games []models.Game
		if err := c.get(ctx, "/api/games", &games); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCODE\tGEN\tNAME")
		for _, g := range games {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", g.ID, g.ShortCode, g.Generation, g.Name)
		}
		return tw.Flush()
	}

	if len(args) != 1 {
		return fmt.Errorf("usage: shiny games <list|show|pokemon|hunt> [id]")
	}
	id := url.PathEscape(args[0])

	switch sub {
	case "show":
		var g models.Game
		if err := c.get(ctx, "/api/games/"+id, &g); err != nil {
			return err
		}
		return c.printJSON(g)
	case "pokemon":
		var items []models.PokemonWithGames
		if err := c.get(ctx, "/api/games/"+id+"/pokemon", &items); err != nil {
			return err
		}
		return c.printPokemonTable(items)
	case "hunt":
		var methods []hunting.Method
		if err := c.get(ctx, "/api/games/"+id+"/hunting-methods", &methods); err != nil {
			return err
		}
		if len(methods) == 0 {
			fmt.Fprintln(c.out, "no hunting methods recorded for this game")
			return nil
		}
		for _, m := range methods {
			fmt.Fprintf(c.out, "%s (%s, %s)\n  %s\n", m.Name, m.Odds, m.EstimatedTime, m.Guide)
		}
		return nil
	default:
		return fmt.Errorf("usage: shiny games <list|show|pokemon|hunt> [id]")
	}
}

func (c *cli) handleImport(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "status":
		var r importer.Report
		if err := c.get(ctx, "/api/import", &r); err != nil {
			return err
		}
		return c.printJSON(r)
	case "watch":
		endpoint, err := websocketURL(c.baseURL, "/ws")
		if err != nil {
			return err
		}
		return c.watch(ctx, endpoint)
	default:
		return fmt.Errorf("usage: shiny import <status|watch>")
	}
}

// watch prints progress events until the import finishes or fails.
func (c *cli) watch(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev synchub.ImportEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		switch ev.Type {
		case synchub.EventEntryImported:
			fmt.Fprintf(c.out, "[%d/%d] #%03d %s\n", ev.Processed, ev.Total, ev.PokeID, ev.Name)
		case synchub.EventEntryFailed:
			fmt.Fprintf(c.out, "[%d/%d] skipped %s: %s\n", ev.Processed, ev.Total, ev.Name, ev.Error)
		case synchub.EventImportStarted:
			fmt.Fprintf(c.out, "import %s started, %d entries\n", ev.RunID, ev.Total)
		case synchub.EventImportFinished:
			fmt.Fprintf(c.out, "import %s finished\n", ev.RunID)
			return nil
		case synchub.EventImportFailed:
			return fmt.Errorf("import %s failed: %s", ev.RunID, ev.Error)
		}
	}
}

// shell is an interactive prompt over the same commands.
func (c *cli) shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "shiny> ",
		HistoryFile:     historyPath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintf(c.out, "The Shiny Archives (%s)\nType 'help' for commands\n\n", c.baseURL)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			printUsage(c.out)
			continue
		}
		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errUsage) {
				printUsage(c.out)
				continue
			}
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

func (c *cli) get(ctx context.Context, path string, out any) error {
	return doJSON(ctx, c.client, http.MethodGet, c.baseURL+path, nil, out)
}

func (c *cli) printPokemonTable(items []models.PokemonWithGames) error {
	if len(items) == 0 {
		fmt.Fprintln(c.out, "no pokemon found")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEX\tNAME\tTYPES\tGAMES")
	for _, p := range items {
		codes := make([]string, 0, len(p.Games))
		for _, g := range p.Games {
			codes = append(codes, g.ShortCode)
		}
		fmt.Fprintf(tw, "#%03d\t%s\t%s\t%s\n", p.PokeID, p.Name, strings.Join(p.Types, "/"), strings.Join(codes, ","))
	}
	return tw.Flush()
}

func (c *cli) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

// apiError is the body every non-2xx API response carries.
type apiError struct {
	Message string `json:"message"`
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var e apiError
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", e.Message, resp.StatusCode)
		}
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shiny_history"
	}
	return filepath.Join(home, ".shiny_history")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "shiny [-api URL] <command> [subcommand] [flags]")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  pokemon list|search|show")
	fmt.Fprintln(w, "  games list|show|pokemon|hunt")
	fmt.Fprintln(w, "  import status|watch")
	fmt.Fprintln(w, "  shell")
}
