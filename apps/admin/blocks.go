package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-admin/core/block"
)

func (cli *commandLine) blocks(ctx context.Context, args []string) error {
	sub, args, err := cli.subcommand("blocks", args, "list", "template", "add", "edit", "delete", "move")
	if err != nil {
		return err
	}

	fs := cli.flagSet("blocks " + sub)
	lessonID := fs.Int("lesson", 0, "The lesson id.")
	id := fs.Int("id", 0, "The content block id.")
	file := fs.String("file", "", `A JSON draft file, eg. {"type": "list", "title": "...", "items": ["..."]}.`)
	typ := fs.String("type", string(block.TypeText), "The content type of the template.")
	to := fs.Int("to", -1, "The new 0-based position of the block.")
	dryRun := fs.Bool("dry-run", false, "Only print the changes.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if sub == "template" {
		d, err := block.NewDraft(block.Type(*typ))
		if err != nil {
			return err
		}
		return cli.printJSON(d)
	}

	if *lessonID <= 0 {
		fs.Usage()
		return errHelp
	}
	ctrl := block.NewController(cli.api, *lessonID, cli.logger)
	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	switch sub {
	case "list":
		w := cli.table()
		fmt.Fprintln(w, "#\tID\tTYPE\tTITLE")
		for _, b := range ctrl.Blocks() {
			t, err := block.ContentType(b)
			if err != nil {
				t = block.Type(b.BlockType)
			}
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", b.Order, b.ID, t, block.Title(b))
		}
		return w.Flush()
	case "add":
		d, err := readDraft(fs, *file)
		if err != nil {
			return err
		}
		if err := ctrl.OpenAddForm(d.Type()); err != nil {
			return err
		}
		b, err := ctrl.Add(ctx, d, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Added block %d at position %d.\n", b.ID, b.Order)
		return nil
	case "edit":
		if err := requireID(fs, *id); err != nil {
			return err
		}
		d, err := readDraft(fs, *file)
		if err != nil {
			return err
		}
		current, err := ctrl.EditDraft(ctx, *id)
		if err != nil {
			return err
		}
		diff, err := draftDiff(current, d, fmt.Sprintf("block %d", *id), *file)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(cli.out, "No changes.")
			return nil
		}
		fmt.Fprint(cli.out, diff)
		if *dryRun {
			return nil
		}
		if _, err := ctrl.Update(ctx, *id, d); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Updated block %d.\n", *id)
		return nil
	case "delete":
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if err := ctrl.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted block %d.\n", *id)
		return nil
	default:
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if *to < 0 || *to >= len(ctrl.Blocks()) {
			fmt.Fprintf(cli.out, "Position out of range, block %d not moved.\n", *id)
			return nil
		}
		if err := ctrl.Reorder(ctx, *id, *to); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Moved block %d to position %d.\n", *id, *to)
		return nil
	}
}

func readDraft(fs *flag.FlagSet, path string) (block.Draft, error) {
	if path == "" {
		fs.Usage()
		return nil, errHelp
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading draft")
	}
	return block.DecodeDraft(data)
}

// draftDiff returns the unified diff of the JSON forms of `from` and `to`, empty if they are equal.
func draftDiff(from, to block.Draft, fromName, toName string) (string, error) {
	a, err := json.MarshalIndent(from, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding current draft")
	}
	b, err := json.MarshalIndent(to, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding new draft")
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding output")
}
