package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/schema"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatbot-relay/pkg/allowlist"
)

const AllowlistStoreSlug = "allowlist-store"

type AllowlistStoreSettings struct {
	DB string `glazed:"allowlist-db"`
}

func newAllowlistStoreSection() (schema.Section, error) {
	return schema.NewSection(
		AllowlistStoreSlug,
		"Allow-list database",
		schema.WithFields(
			fields.New("allowlist-db", fields.TypeString,
				fields.WithDefault("chatbot-relay.db"),
				fields.WithHelp("SQLite database file holding allowed businesses")),
		),
	)
}

func openAllowlistStore(parsed *values.Values) (*allowlist.SQLiteStore, error) {
	s := &AllowlistStoreSettings{}
	if err := parsed.DecodeSectionInto(AllowlistStoreSlug, s); err != nil {
		return nil, errors.Wrap(err, "init allow-list store settings")
	}
	if strings.TrimSpace(s.DB) == "" {
		return nil, errors.New("allowlist-db is empty")
	}
	dsn, err := allowlist.SQLiteDSNForFile(strings.TrimSpace(s.DB))
	if err != nil {
		return nil, err
	}
	return allowlist.NewSQLiteStore(dsn)
}

// NewAllowlistCommand groups the allow-list administration commands.
func NewAllowlistCommand() (*cobra.Command, error) {
	root := &cobra.Command{
		Use:   "allowlist",
		Short: "Manage the business allow-list database",
		Long:  "Add, remove and list the businesses the relay accepts when serving with --allowlist-db.",
	}

	listCmd, err := NewAllowlistListCommand()
	if err != nil {
		return nil, err
	}
	addCmd, err := NewAllowlistAddCommand()
	if err != nil {
		return nil, err
	}
	removeCmd, err := NewAllowlistRemoveCommand()
	if err != nil {
		return nil, err
	}
	for _, c := range []cmds.Command{listCmd, addCmd, removeCmd} {
		cobraCmd, err := cli.BuildCobraCommand(c)
		if err != nil {
			return nil, err
		}
		root.AddCommand(cobraCmd)
	}
	return root, nil
}

type AllowlistListCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = &AllowlistListCommand{}

func NewAllowlistListCommand() (*AllowlistListCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}
	storeSection, err := newAllowlistStoreSection()
	if err != nil {
		return nil, err
	}
	return &AllowlistListCommand{
		CommandDescription: cmds.NewCommandDescription(
			"list",
			cmds.WithShort("List allowed businesses"),
			cmds.WithSections(storeSection, glazedSection, commandSettingsSection),
		),
	}, nil
}

func (c *AllowlistListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsed *values.Values,
	gp middlewares.Processor,
) error {
	store, err := openAllowlistStore(parsed)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	businesses, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, b := range businesses {
		row := types.NewRow(
			types.MRP("id", b.ID),
			types.MRP("name", b.Name),
			types.MRP("created_at", time.UnixMilli(b.CreatedAtMs).UTC().Format(time.RFC3339)),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

type AllowlistAddSettings struct {
	ID   string `glazed:"id"`
	Name string `glazed:"name"`
}

type AllowlistAddCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = &AllowlistAddCommand{}

func NewAllowlistAddCommand() (*AllowlistAddCommand, error) {
	storeSection, err := newAllowlistStoreSection()
	if err != nil {
		return nil, err
	}
	return &AllowlistAddCommand{
		CommandDescription: cmds.NewCommandDescription(
			"add",
			cmds.WithShort("Allow a business id (renames it if already present)"),
			cmds.WithArguments(
				fields.New("id", fields.TypeString,
					fields.WithHelp("Business id"),
					fields.WithRequired(true)),
			),
			cmds.WithFlags(
				fields.New("name", fields.TypeString,
					fields.WithDefault(""),
					fields.WithHelp("Display name")),
			),
			cmds.WithSections(storeSection),
		),
	}, nil
}

func (c *AllowlistAddCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s := &AllowlistAddSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init add settings")
	}
	store, err := openAllowlistStore(parsed)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Add(ctx, allowlist.Business{ID: s.ID, Name: s.Name}); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "allowed %s\n", strings.TrimSpace(s.ID))
	return err
}

type AllowlistRemoveSettings struct {
	ID string `glazed:"id"`
}

type AllowlistRemoveCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = &AllowlistRemoveCommand{}

func NewAllowlistRemoveCommand() (*AllowlistRemoveCommand, error) {
	storeSection, err := newAllowlistStoreSection()
	if err != nil {
		return nil, err
	}
	return &AllowlistRemoveCommand{
		CommandDescription: cmds.NewCommandDescription(
			"remove",
			cmds.WithShort("Stop allowing a business id"),
			cmds.WithArguments(
				fields.New("id", fields.TypeString,
					fields.WithHelp("Business id"),
					fields.WithRequired(true)),
			),
			cmds.WithSections(storeSection),
		),
	}, nil
}

func (c *AllowlistRemoveCommand) RunIntoWriter(ctx context.Context, parsed *values.Values, w io.Writer) error {
	s := &AllowlistRemoveSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return errors.Wrap(err, "init remove settings")
	}
	store, err := openAllowlistStore(parsed)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id := strings.TrimSpace(s.ID)
	removed, err := store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return errors.Errorf("business %s is not in the allow-list", id)
	}
	_, err = fmt.Fprintf(w, "removed %s\n", id)
	return err
}
