package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service"
)

func main() {
	// 加载 .env（不存在时忽略）
	_ = godotenv.Load()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 兼容标准 OpenAI 环境变量
	if cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	ctx := context.Background()

	// 初始化各层
	repos := repository.NewRepositories(cfg.App.DataDir)
	services, err := service.NewServices(ctx, cfg, repos)
	if err != nil {
		log.Fatalf("Failed to init services: %v", err)
	}

	// 令牌优先取环境变量并持久化，其次取上次保存的值
	token := os.Getenv("STORAGE_TOKEN")
	if token != "" {
		if err := repos.Settings.Set("auth/token", token); err != nil {
			log.Printf("Warning: failed to persist storage token: %v", err)
		}
	} else {
		token = repos.Settings.Get("auth/token", "")
	}
	if token != "" {
		services.FileContext.SetToken(token)
	}

	log.Printf("%s started (data dir: %s)", cfg.App.Name, cfg.App.DataDir)
	runREPL(ctx, repos, services)
}

// runREPL 运行交互式命令循环
func runREPL(ctx context.Context, repos *repository.Repositories, services *service.Services) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Commands: new, temp, attach <id> [name], files, clearfiles, send <text>,")
	fmt.Println("          summarize <id> [name], history [sort], search <query>, open <n>,")
	fmt.Println("          rename <n> <title>, delete <n>, leave, quit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "quit", "exit":
			services.Chat.LeaveChat()
			return

		case "new":
			services.Chat.NewChat()
			fmt.Println("Started a new chat")

		case "temp":
			services.Chat.SetTemporary(true)
			fmt.Println("Chat marked as temporary")

		case "attach":
			id, name, _ := strings.Cut(rest, " ")
			if id == "" {
				fmt.Println("Usage: attach <id> [name]")
				continue
			}
			refs := append(services.Chat.Files(), model.FileRef{ID: id, Name: strings.TrimSpace(name)})
			if err := services.Chat.AttachFiles(ctx, refs); err != nil {
				fmt.Printf("Attach failed: %v\n", err)
				continue
			}
			fmt.Printf("%d file(s) attached\n", len(refs))

		case "files":
			for _, f := range services.Chat.Files() {
				fmt.Printf("  %s  %s\n", f.ID, f.Name)
			}

		case "clearfiles":
			if err := services.Chat.ClearFiles(); err != nil {
				fmt.Printf("Clear failed: %v\n", err)
			}

		case "send":
			if rest == "" {
				fmt.Println("Usage: send <text>")
				continue
			}
			roundTrip(func(onDone func(string), onErr func(error)) bool {
				return services.Chat.SendMessage(ctx, rest, onDone, onErr)
			})

		case "summarize":
			id, name, _ := strings.Cut(rest, " ")
			if id == "" {
				fmt.Println("Usage: summarize <id> [name]")
				continue
			}
			ref := model.FileRef{ID: id, Name: strings.TrimSpace(name)}
			roundTrip(func(onDone func(string), onErr func(error)) bool {
				return services.Chat.SummarizeFile(ctx, ref, onDone, onErr)
			})

		case "history":
			sessions := repos.History.Sort(repos.History.Load(), repository.SortMode(rest))
			printSessions(repos, sessions)

		case "search":
			sessions := repos.History.Search(repos.History.Load(), rest)
			printSessions(repos, sessions)

		case "open":
			session, ok := pickSession(repos, rest)
			if !ok {
				continue
			}
			if err := services.Chat.OpenSession(ctx, session); err != nil {
				fmt.Printf("Warning: %v\n", err)
			}
			for _, m := range services.Chat.Messages() {
				fmt.Printf("[%s] %s\n", m.Role, m.Content)
			}

		case "rename":
			idx, title, _ := strings.Cut(rest, " ")
			session, ok := pickSession(repos, idx)
			if !ok {
				continue
			}
			if err := repos.History.RenameSession(session.ID, title); err != nil {
				fmt.Printf("Rename failed: %v\n", err)
			}

		case "delete":
			session, ok := pickSession(repos, rest)
			if !ok {
				continue
			}
			if err := repos.History.DeleteSessions([]string{session.ID}); err != nil {
				fmt.Printf("Delete failed: %v\n", err)
			}

		case "leave":
			services.Chat.LeaveChat()
			fmt.Println("Left the chat")

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}
	}
}

// roundTrip 启动一次后台请求并阻塞到终态回调
func roundTrip(start func(onDone func(string), onErr func(error)) bool) {
	done := make(chan struct{})
	started := start(
		func(assistant string) {
			fmt.Printf("\nAssistant: %s\n", assistant)
			close(done)
		},
		func(err error) {
			fmt.Printf("\nError: %v\n", err)
			close(done)
		},
	)
	if !started {
		fmt.Println("A request is already in progress")
		return
	}
	<-done
}

// printSessions 按序号列出会话
func printSessions(repos *repository.Repositories, sessions []model.ChatSession) {
	for i, item := range repos.History.FormatItems(sessions) {
		fmt.Printf("%3d  %s\n", i+1, item)
	}
}

// pickSession 按列表序号取会话（序号基于默认排序）
func pickSession(repos *repository.Repositories, arg string) (model.ChatSession, bool) {
	sessions := repos.History.Sort(repos.History.Load(), repository.SortNewestFirst)
	var n int
	if _, err := fmt.Sscanf(arg, "%d", &n); err != nil || n < 1 || n > len(sessions) {
		fmt.Println("Invalid session number")
		return model.ChatSession{}, false
	}
	return sessions[n-1], true
}
