package cli

import (
	"context"
	"strconv"

	"github.com/dmitrijs2005/taskdesk/internal/client/services"
)

func (a *App) Stats(ctx context.Context, _ []string) error {
	sum, err := services.Stats(ctx, a.tasks, a.users)
	if err != nil {
		return err
	}

	rows := [][]string{{"Tasks", strconv.Itoa(sum.Tasks)}}
	if sum.Users != nil {
		rows = append(rows, []string{"Users", strconv.Itoa(*sum.Users)})
	}
	a.println(renderKV(rows))
	return nil
}
