// Command campusctl performs administrative tasks against the campusdesk
// database: promoting staff and admins, listing accounts, and reading the
// audit trail.
//
// Usage:
//
//	campusctl [-mongo-uri URI] [-db NAME] set-role <email> <user|staff|admin>
//	campusctl [-mongo-uri URI] [-db NAME] list-users [role]
//	campusctl [-mongo-uri URI] [-db NAME] audit [limit]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dalemusser/campusdesk/internal/app/store/audit"
	userstore "github.com/dalemusser/campusdesk/internal/app/store/users"
	"github.com/dalemusser/campusdesk/internal/app/system/auditlog"
	"github.com/dalemusser/campusdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "campusctl:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var errUsage = errors.New("usage: campusctl [flags] set-role <email> <role> | list-users [role] | audit [limit]")

func run(args []string, out io.Writer, logger *zap.Logger) error {
	fs := flag.NewFlagSet("campusctl", flag.ContinueOnError)
	uri := fs.String("mongo-uri", envOr("CAMPUSDESK_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	dbName := fs.String("db", envOr("CAMPUSDESK_MONGO_DATABASE", "campusdesk"), "MongoDB database name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*uri))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return dispatch(ctx, client.Database(*dbName), rest, out, logger)
}

func dispatch(ctx context.Context, db *mongo.Database, args []string, out io.Writer, logger *zap.Logger) error {
	switch args[0] {
	case "set-role":
		if len(args) != 3 {
			return errUsage
		}
		return setRole(ctx, db, args[1], args[2], logger)
	case "list-users":
		role := ""
		if len(args) > 1 {
			role = args[1]
		}
		return listUsers(ctx, db, role, out)
	case "audit":
		limit := int64(20)
		if len(args) > 1 {
			n, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || n <= 0 {
				return fmt.Errorf("limit must be a positive integer")
			}
			limit = n
		}
		return printAudit(ctx, db, limit, out)
	default:
		return errUsage
	}
}

func setRole(ctx context.Context, db *mongo.Database, email, role string, logger *zap.Logger) error {
	if err := userstore.New(db).SetRole(ctx, email, role); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("no user with email %q", email)
		}
		return err
	}
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Auth: "off", Admin: "all"})
	al.UserRoleChanged(ctx, email, role)
	logger.Info("role updated", zap.String("email", email), zap.String("role", role))
	return nil
}

func listUsers(ctx context.Context, db *mongo.Database, role string, out io.Writer) error {
	users := userstore.New(db)
	roles := []string{models.RoleAdmin, models.RoleStaff, models.RoleUser}
	if role != "" {
		if !models.IsValidRole(role) {
			return fmt.Errorf("unknown role %q", role)
		}
		roles = []string{role}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tCREATED")
	for _, r := range roles {
		list, err := users.ListByRole(ctx, r)
		if err != nil {
			return err
		}
		for _, u := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID.Hex(), u.Email, u.Role, u.CreatedAt.Format(time.RFC3339))
		}
	}
	return tw.Flush()
}

func printAudit(ctx context.Context, db *mongo.Database, limit int64, out io.Writer) error {
	events, err := audit.New(db).GetRecent(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCATEGORY\tEVENT\tOK\tIP\tDETAILS")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%v\n",
			e.Timestamp.Format(time.RFC3339), e.Category, e.EventType, e.Success, e.IP, e.Details)
	}
	return tw.Flush()
}
