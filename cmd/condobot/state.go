package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zulandar/condobot/internal/laundry"
)

const stateTimeLayout = "02/01/2006 15:04"

func newStateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the washing machine reservation and queue",
		Long:  "Reads the persisted laundry state (state file or database) and prints the active reservation and the wait queue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "condobot.yaml", "path to condobot config file")
	return cmd
}

func runState(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Laundry.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", cfg.Laundry.Timezone, err)
	}
	states, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	st, err := states.Load(context.Background())
	if err != nil {
		return err
	}
	printState(cmd.OutOrStdout(), st, loc)
	return nil
}

func printState(out io.Writer, st laundry.State, loc *time.Location) {
	if r := st.Reservation; r != nil {
		fmt.Fprintf(out, "Machine:  IN USE by %s (%s)\n", r.Holder, r.Conversation)
		fmt.Fprintf(out, "  Started: %s\n", r.Start.In(loc).Format(stateTimeLayout))
		fmt.Fprintf(out, "  Ends:    %s\n", r.End.In(loc).Format(stateTimeLayout))
	} else {
		fmt.Fprintf(out, "Machine:  FREE\n")
	}

	if len(st.Queue) == 0 {
		fmt.Fprintf(out, "Queue:    empty\n")
		return
	}
	fmt.Fprintf(out, "Queue:    %d waiting\n", len(st.Queue))
	for i, q := range st.Queue {
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, q.Participant, q.Conversation)
	}
}
