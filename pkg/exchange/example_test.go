package exchange_test

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/exchange"
	"github.com/insanj/TodoFast/pkg/launch"
	"github.com/insanj/TodoFast/pkg/record"
	"github.com/insanj/TodoFast/pkg/slotstore"
)

func Example_handoff() {
	ctx := context.Background()
	store := slotstore.NewMemory(slotstore.MemoryOptions{})
	defer store.Close()

	ch, _ := exchange.New(store, launch.NewRegistry(),
		exchange.WithLogger(zap.NewNop()),
		exchange.WithShowErrorAlerts(false))

	task := record.NewTask("  Call Bob ")
	_ = task.SetType(record.TypeCallContact, []string{"mobile"}, []string{"555-1111"})

	// Todo is not installed here, so the launch fails and the task waits.
	ok, _ := ch.HandoffTask(ctx, task, exchange.Todo)
	fmt.Println(ok)

	d, _ := ch.ConsumeTask(ctx, "")
	fmt.Println(d.Record.Name(), d.Record.Type(), d.Record.TypeValues())

	_, err := ch.ConsumeTask(ctx, "")
	fmt.Println(err)

	// Output:
	// false
	// Call Bob call-contact [555-1111]
	// exchange: no record present
}
