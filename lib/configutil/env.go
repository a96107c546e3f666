package configutil

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotenv loads a .env file into the process environment if one
// exists. A missing file is not an error since deployments may provide
// real environment variables instead.
func LoadDotenv() {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}
}

type Account struct {
	Username string
	Password string
}

// Redacted returns a loggable form of the username, keeping only the
// first two characters. Credentials must never hit logs whole.
func (a Account) Redacted() string {
	if len(a.Username) < 2 {
		return "***"
	}
	return a.Username[:2] + "***"
}

// AccountsFromEnv collects Threads credentials from the environment.
// Numbered pairs (THREADS_USERNAME1, THREADS_PASSWORD1, ...) are read
// until the sequence breaks, then the unnumbered pair is appended if it
// isn't already present.
func AccountsFromEnv() []Account {
	var accounts []Account

	for index := 1; ; index++ {
		username := os.Getenv(fmt.Sprintf("THREADS_USERNAME%d", index))
		password := os.Getenv(fmt.Sprintf("THREADS_PASSWORD%d", index))
		if username == "" || password == "" {
			break
		}
		account := Account{Username: username, Password: password}
		accounts = append(accounts, account)
		slog.Info("found account", "index", index, "username", account.Redacted())
	}

	username := os.Getenv("THREADS_USERNAME")
	password := os.Getenv("THREADS_PASSWORD")
	if username != "" && password != "" {
		exists := false
		for _, a := range accounts {
			if a.Username == username && a.Password == password {
				exists = true
				break
			}
		}
		if !exists {
			account := Account{Username: username, Password: password}
			accounts = append(accounts, account)
			slog.Info("found default account", "username", account.Redacted())
		}
	}

	return accounts
}

const defaultOpenAIModel = "gpt-4.1-2025-04-14"

type OpenAIEnv struct {
	APIKey string
	Model  string
}

func OpenAIFromEnv() OpenAIEnv {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultOpenAIModel
	}
	return OpenAIEnv{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  model,
	}
}
