package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  list [limit] [skip]   list complaints, newest first (default limit 10)
  show <complaint_id>   print one complaint`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	config.LoadEnvFiles()
	dsn, err := config.LoadStore()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := storage.Open(dsn)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	storageSvc := storage.NewStorageService(db)
	defer storageSvc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, storageSvc, os.Args[1:], os.Stdout); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Println(ue.Error())
			os.Exit(1)
		}
		log.Fatalf("Error: %v", err)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func run(ctx context.Context, s storage.Storage, args []string, out io.Writer) error {
	switch args[0] {
	case "list":
		if len(args) > 3 {
			return usageError("Usage: admin list [limit] [skip]")
		}
		limit, skip := 10, 0
		var err error
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return usageError("Invalid limit. Please provide an integer.")
			}
		}
		if len(args) > 2 {
			if skip, err = strconv.Atoi(args[2]); err != nil {
				return usageError("Invalid skip. Please provide an integer.")
			}
		}
		return listComplaints(ctx, s, limit, skip, out)
	case "show":
		if len(args) != 2 {
			return usageError("Usage: admin show <complaint_id>")
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return usageError("Invalid complaint ID. Please provide a positive integer.")
		}
		return showComplaint(ctx, s, uint(id), out)
	default:
		return usageError(usage)
	}
}

func listComplaints(ctx context.Context, s storage.Storage, limit, skip int, out io.Writer) error {
	complaints, err := s.ListComplaints(ctx, limit, skip)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tSTATUS\tCREATED\tLOCATION\tDESCRIPTION")
	for _, c := range complaints {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			c.ID, c.UserID, c.Status, c.CreatedAt.Format(time.RFC3339), location(c), truncate(c.Description, 60))
	}
	return w.Flush()
}

func showComplaint(ctx context.Context, s storage.Storage, id uint, out io.Writer) error {
	c, err := s.GetComplaintByID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ID:          %d\n", c.ID)
	fmt.Fprintf(out, "User:        %d\n", c.UserID)
	fmt.Fprintf(out, "Status:      %s\n", c.Status)
	fmt.Fprintf(out, "Created:     %s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Location:    %s\n", location(*c))
	fmt.Fprintf(out, "Description: %s\n", c.Description)
	return nil
}

func location(c models.Complaint) string {
	if !c.HasLocation() {
		return "-"
	}
	return fmt.Sprintf("%.5f,%.5f", *c.Latitude, *c.Longitude)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
