package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/lms"
)

func (cli *commandLine) videos(ctx context.Context, args []string) error {
	sub, args, err := cli.subcommand("videos", args, "list", "upload", "delete")
	if err != nil {
		return err
	}

	fs := cli.flagSet("videos " + sub)
	id := fs.Int("id", 0, "The video id.")
	title := fs.String("title", "", "The video title, the file name if empty.")
	file := fs.String("file", "", "The video file to upload.")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	switch sub {
	case "list":
		videos, err := cli.api.Videos(ctx)
		if err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tDURATION\tFILE")
		for _, v := range videos {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.ID, v.Title, formatSeconds(v.Duration), v.File)
		}
		return w.Flush()
	case "upload":
		if *file == "" {
			fs.Usage()
			return errHelp
		}
		return cli.uploadVideo(ctx, *file, *title)
	default:
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if err := cli.api.DeleteVideo(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Deleted video %d.\n", *id)
		return nil
	}
}

func (cli *commandLine) uploadVideo(ctx context.Context, path, title string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening video")
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "opening video")
	}

	name := filepath.Base(path)
	title = core.FirstNonBlank(title, strings.TrimSuffix(name, filepath.Ext(name)))
	vu := lms.VideoUpload{Title: title, Filename: name, Size: info.Size()}
	v, err := cli.api.UploadVideo(ctx, vu, f, func(pct int) {
		fmt.Fprintf(cli.out, "\ruploading %s: %3d%%", name, pct)
	})
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Uploaded video %d (%s).\n", v.ID, v.File)
	return nil
}

func formatSeconds(s int) string {
	if s <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
