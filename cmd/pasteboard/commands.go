package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insanj/TodoFast/pkg/archive"
	"github.com/insanj/TodoFast/pkg/exchange"
	"github.com/insanj/TodoFast/pkg/recordfile"
)

var kindArgs = cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)

func publishCmd(open opener) *cobra.Command {
	var file, slot string
	cmd := &cobra.Command{
		Use:       "publish task|note -f FILE",
		Short:     "Publish a record from a YAML file to a slot",
		Args:      kindArgs,
		ValidArgs: []string{"task", "note"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var rc exchange.Receipt
			switch args[0] {
			case "task":
				t, lerr := recordfile.LoadTask(file)
				if lerr != nil {
					return lerr
				}
				rc, err = a.ch.PublishTask(cmd.Context(), t, slot)
			case "note":
				n, lerr := recordfile.LoadNote(file)
				if lerr != nil {
					return lerr
				}
				rc, err = a.ch.PublishNote(cmd.Context(), n, slot)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s to %s (id %s, %d bytes)\n", rc.Kind, rc.Slot, rc.ID, rc.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML record file")
	cmd.Flags().StringVar(&slot, "slot", "", "Slot name (default from config)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func consumeCmd(open opener) *cobra.Command {
	var slot string
	var withName, asYAML bool
	cmd := &cobra.Command{
		Use:       "consume task|note",
		Short:     "Take the record in a slot and print it",
		Args:      kindArgs,
		ValidArgs: []string{"task", "note"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "task":
				d, err := a.ch.ConsumeTask(cmd.Context(), slot)
				if err != nil {
					return err
				}
				printWarnings(cmd.ErrOrStderr(), d.Warnings)
				if asYAML {
					b, err := recordfile.MarshalTask(d.Record)
					if err != nil {
						return err
					}
					_, err = out.Write(b)
					return err
				}
				fmt.Fprintln(out, d.Record.PlainText(withName))
			case "note":
				d, err := a.ch.ConsumeNote(cmd.Context(), slot)
				if err != nil {
					return err
				}
				printWarnings(cmd.ErrOrStderr(), d.Warnings)
				if asYAML {
					b, err := recordfile.MarshalNote(d.Record)
					if err != nil {
						return err
					}
					_, err = out.Write(b)
					return err
				}
				fmt.Fprintln(out, d.Record.PlainText(withName))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slot, "slot", "", "Slot name (default from config)")
	cmd.Flags().BoolVar(&withName, "name", false, "Include the record name in the text")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the record as a YAML document")
	return cmd
}

func probeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:       "probe todo|notebook",
		Short:     "Report whether a host application can be launched",
		Args:      kindArgs,
		ValidArgs: []string{"todo", "notebook"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			host, _ := exchange.HostByName(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: available=%t hi-res=%t\n",
				host.Name, a.ch.Probe(host), a.ch.ProbeHiRes(host))
			return nil
		},
	}
}

func handoffCmd(open opener) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:       "handoff task|note -f FILE",
		Short:     "Publish a record and open the host application",
		Args:      kindArgs,
		ValidArgs: []string{"task", "note"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				ok   bool
				host exchange.HostApp
				slot string
			)
			switch args[0] {
			case "task":
				t, lerr := recordfile.LoadTask(file)
				if lerr != nil {
					return lerr
				}
				host, slot = exchange.Todo, a.ch.TaskSlot()
				ok, err = a.ch.HandoffTask(cmd.Context(), t, host)
			case "note":
				n, lerr := recordfile.LoadNote(file)
				if lerr != nil {
					return lerr
				}
				host, slot = exchange.Notebook, a.ch.NoteSlot()
				ok, err = a.ch.HandoffNote(cmd.Context(), n, host)
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s could not be opened; record left in %s", host.Name, slot)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "handed off to %s\n", host.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML record file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func renderCmd() *cobra.Command {
	var file, kind string
	var convert, withName bool
	cmd := &cobra.Command{
		Use:   "render -f FILE",
		Short: "Print the plain-text form of a record file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch strings.ToLower(kind) {
			case "task":
				t, err := recordfile.LoadTask(file)
				if err != nil {
					return err
				}
				if convert {
					fmt.Fprintln(out, t.NoteRepresentation().PlainText(withName))
					return nil
				}
				fmt.Fprintln(out, t.PlainText(withName))
			case "note":
				n, err := recordfile.LoadNote(file)
				if err != nil {
					return err
				}
				if convert {
					fmt.Fprintln(out, n.TaskRepresentation().PlainText(withName))
					return nil
				}
				fmt.Fprintln(out, n.PlainText(withName))
			default:
				return fmt.Errorf("unknown kind %q (want task or note)", kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML record file")
	cmd.Flags().StringVar(&kind, "kind", "task", "Record kind: task or note")
	cmd.Flags().BoolVar(&convert, "convert", false, "Render the other kind's representation")
	cmd.Flags().BoolVar(&withName, "name", false, "Include the record name in the text")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printWarnings(w io.Writer, warns archive.Warnings) {
	for _, wr := range warns {
		fmt.Fprintf(w, "warning: %s\n", wr)
	}
}
