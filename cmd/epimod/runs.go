package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/epimath/go-epimod/store"
)

func runs(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "SQLite run database")
	limit := fs.Int("limit", 20, "Number of runs to list")
	get := fs.String("get", "", "Export one run as JSON to stdout")
	del := fs.String("delete", "", "Delete one run by id")
	modelName := fs.String("model", "", "List only runs of this model")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epimod runs [options]

List, export, or delete archived runs.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()

	switch {
	case *get != "":
		res, err := db.GetRun(ctx, *get)
		if err != nil {
			return err
		}
		doc, err := res.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(doc)
		return nil

	case *del != "":
		if err := db.DeleteRun(ctx, *del); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted %s\n", *del)
		return nil
	}

	var infos []*store.RunInfo
	if *modelName != "" {
		infos, err = db.RunsForModel(ctx, *modelName)
	} else {
		infos, err = db.ListRuns(ctx, *limit)
	}
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %-19s  %-7s  %s\n", "ID", "MODEL", "CREATED", "STATUS", "DRAWS")
	for _, info := range infos {
		fmt.Printf("%-36s  %-20s  %-19s  %-7s  %d\n",
			info.ID, info.Model, info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Status, info.Draws)
	}
	return nil
}
