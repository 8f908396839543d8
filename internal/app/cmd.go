package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションを定期削除するワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandCleanup は期限切れセッションの削除を1回だけ実行して終了することを示す。
	// cronなど外部スケジューラから呼び出す用途。
	CommandCleanup Command = "cleanup"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandSchemaVersion は適用済みスキーマのバージョンを表示することを示す。
	CommandSchemaVersion Command = "schema-version"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// commands はusage表示の順序も兼ねる。
var commands = []struct {
	cmd  Command
	desc string
}{
	{CommandServe, "start the API server (default)"},
	{CommandWorker, "delete expired sessions periodically"},
	{CommandCleanup, "delete expired sessions once and exit"},
	{CommandMigrate, "apply database migrations"},
	{CommandSchemaVersion, "print the applied schema version"},
	{CommandHealthcheck, "check the local /health endpoint"},
}

// NeedsDatabase はそのコマンドがDB接続を必要とするかを返す。
func (c Command) NeedsDatabase() bool {
	return c != CommandHealthcheck
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。2つ目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	for _, c := range commands {
		if string(c.cmd) == args[0] {
			return c.cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q\n%s", args[0], Usage())
}

// Usage はサブコマンドの一覧を返す。
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: schoolnews [command]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-16s %s\n", c.cmd, c.desc)
	}
	return b.String()
}
