package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions for the SQLite backend, applied by ent's migrator.
var (
	documentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "body", Type: field.TypeBytes},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	documentsTable = &schema.Table{
		Name:       "documents",
		Columns:    documentsColumns,
		PrimaryKey: []*schema.Column{documentsColumns[0]},
	}

	transitionEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeInt64},
		{Name: "run_id", Type: field.TypeString},
		{Name: "kind", Type: field.TypeString},
		{Name: "subtopic_id", Type: field.TypeString, Default: ""},
		{Name: "from_level", Type: field.TypeString, Default: ""},
		{Name: "to_level", Type: field.TypeString, Default: ""},
		{Name: "detail", Type: field.TypeInt, Default: 0},
	}
	transitionEventsTable = &schema.Table{
		Name:       "transition_events",
		Columns:    transitionEventsColumns,
		PrimaryKey: []*schema.Column{transitionEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "transitionevent_run_id", Columns: []*schema.Column{transitionEventsColumns[3]}},
			{Name: "transitionevent_timestamp", Columns: []*schema.Column{transitionEventsColumns[2]}},
		},
	}

	tables = []*schema.Table{documentsTable, transitionEventsTable}
)
