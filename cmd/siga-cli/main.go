package main

import (
	"context"

	"siga-backend/cmd/siga-cli/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
