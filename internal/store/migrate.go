package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// ConfirmationEventsColumns holds the columns for the "confirmation_events" table.
	ConfirmationEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "occurred_at", Type: field.TypeTime},
		{Name: "user_id", Type: field.TypeString},
		{Name: "skill_id", Type: field.TypeString},
		{Name: "skill_version", Type: field.TypeString, Default: ""},
		{Name: "type", Type: field.TypeString},
		{Name: "level", Type: field.TypeInt},
	}
	// ConfirmationEventsTable holds the schema information for the "confirmation_events" table.
	ConfirmationEventsTable = &schema.Table{
		Name:       "confirmation_events",
		Columns:    ConfirmationEventsColumns,
		PrimaryKey: []*schema.Column{ConfirmationEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "confirmationevent_user_id_skill_id",
				Unique:  false,
				Columns: []*schema.Column{ConfirmationEventsColumns[3], ConfirmationEventsColumns[4]},
			},
			{
				Name:    "confirmationevent_skill_id",
				Unique:  false,
				Columns: []*schema.Column{ConfirmationEventsColumns[4]},
			},
		},
	}

	// SkillsColumns holds the columns for the "skills" table.
	SkillsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "current_version", Type: field.TypeString, Default: ""},
		{Name: "audit_date", Type: field.TypeTime, Nullable: true},
		{Name: "audit_opened_at", Type: field.TypeTime, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	// SkillsTable holds the schema information for the "skills" table.
	SkillsTable = &schema.Table{
		Name:       "skills",
		Columns:    SkillsColumns,
		PrimaryKey: []*schema.Column{SkillsColumns[0]},
	}

	// SkillVersionsColumns holds the columns for the "skill_versions" table.
	SkillVersionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "skill_id", Type: field.TypeString},
		{Name: "version", Type: field.TypeString},
		{Name: "author_id", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	// SkillVersionsTable holds the schema information for the "skill_versions" table.
	SkillVersionsTable = &schema.Table{
		Name:       "skill_versions",
		Columns:    SkillVersionsColumns,
		PrimaryKey: []*schema.Column{SkillVersionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "skillversion_skill_id_version",
				Unique:  true,
				Columns: []*schema.Column{SkillVersionsColumns[1], SkillVersionsColumns[2]},
			},
		},
	}

	// TestDefinitionsColumns holds the columns for the "test_definitions" table.
	TestDefinitionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "skill_version_id", Type: field.TypeString},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "time_limit_seconds", Type: field.TypeInt},
		{Name: "pass_threshold", Type: field.TypeInt},
		{Name: "questions", Type: field.TypeJSON},
		{Name: "created_at", Type: field.TypeTime},
	}
	// TestDefinitionsTable holds the schema information for the "test_definitions" table.
	TestDefinitionsTable = &schema.Table{
		Name:       "test_definitions",
		Columns:    TestDefinitionsColumns,
		PrimaryKey: []*schema.Column{TestDefinitionsColumns[0]},
	}

	// TestResultsColumns holds the columns for the "test_results" table.
	TestResultsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "test_id", Type: field.TypeString},
		{Name: "score", Type: field.TypeInt},
		{Name: "pass_threshold", Type: field.TypeInt},
		{Name: "passed", Type: field.TypeBool},
		{Name: "answers", Type: field.TypeJSON},
		{Name: "completed_at", Type: field.TypeTime},
	}
	// TestResultsTable holds the schema information for the "test_results" table.
	TestResultsTable = &schema.Table{
		Name:       "test_results",
		Columns:    TestResultsColumns,
		PrimaryKey: []*schema.Column{TestResultsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "testresult_user_id_test_id",
				Unique:  true,
				Columns: []*schema.Column{TestResultsColumns[1], TestResultsColumns[2]},
			},
		},
	}

	// TestSessionsColumns holds the columns for the "test_sessions" table.
	TestSessionsColumns = []*schema.Column{
		{Name: "session_id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "test_id", Type: field.TypeString},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "deadline", Type: field.TypeTime},
		{Name: "time_limit_seconds", Type: field.TypeInt},
		{Name: "answers", Type: field.TypeJSON},
	}
	// TestSessionsTable holds the schema information for the "test_sessions" table.
	TestSessionsTable = &schema.Table{
		Name:       "test_sessions",
		Columns:    TestSessionsColumns,
		PrimaryKey: []*schema.Column{TestSessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "testsession_deadline",
				Unique:  false,
				Columns: []*schema.Column{TestSessionsColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ConfirmationEventsTable,
		SkillsTable,
		SkillVersionsTable,
		TestDefinitionsTable,
		TestResultsTable,
		TestSessionsTable,
	}
)
