package catalog

// Name identifies a SQL fragment in the catalog.
type Name string

// Read templates.
const (
	ReadFormNames      Name = "READ_FORM_NAMES"
	ReadFormFieldNames Name = "READ_FORM_FIELD_NAMES"
	CountFormEntries   Name = "COUNT_FORM_ENTRIES"
	ReadFormEntry      Name = "READ_FORM_ENTRY"
	ReadFormData       Name = "READ_FORM_DATA"
)

// Builder fragments. CondFieldFrom, FilterStates, FilterField, FilterLimit
// and FilterOffset carry the placeholder.
const (
	CondFieldFrom    Name = "COND_FIELD_FROM"
	CondAnd          Name = "COND_AND"
	CondWhere        Name = "COND_WHERE"
	CondOrderAsc     Name = "COND_ORDER_ASC"
	CondOrderDesc    Name = "COND_ORDER_DESC"
	FilterEntryID    Name = "FILTER_ENTRY_ID"
	FilterFormID     Name = "FILTER_FORM_ID"
	FilterDateEnd    Name = "FILTER_DATE_END"
	FilterDateStart  Name = "FILTER_DATE_START"
	FilterResourceID Name = "FILTER_RESOURCE_ID"
	FilterStates     Name = "FILTER_STATES"
	FilterField      Name = "FILTER_FIELD"
	FilterLimit      Name = "FILTER_LIMIT"
	FilterOffset     Name = "FILTER_OFFSET"
)

// Schema statements.
const (
	CheckTables            Name = "CHECK_TABLES"
	CreateEntriesTable     Name = "CREATE_TABLE_WEBFORM_ENTRIES"
	CreateDataTable        Name = "CREATE_TABLE_WEBFORM_DATA"
	MigrateEntryState      Name = "UPDATE_FORM_ENTRY_STATE"
	MigrateEntryResourceID Name = "UPDATE_FORM_ENTRY_RESID"
)

// Write statements.
const (
	WriteFormEntry  Name = "WRITE_FORM_ENTRY"
	WriteFormData   Name = "WRITE_FORM_DATA"
	DeleteFormEntry Name = "DELETE_FORM_ENTRY"
	DeleteFormData  Name = "DELETE_FORM_DATA"
	DeleteFormField Name = "DELETE_FORM_FIELD"
	UpdateFormState Name = "UPDATE_FORM_STATE"
)

// Required lists every name a catalog definition must provide.
func Required() []Name {
	return []Name{
		ReadFormNames, ReadFormFieldNames, CountFormEntries, ReadFormEntry, ReadFormData,
		CondFieldFrom, CondAnd, CondWhere, CondOrderAsc, CondOrderDesc,
		FilterEntryID, FilterFormID, FilterDateEnd, FilterDateStart, FilterResourceID,
		FilterStates, FilterField, FilterLimit, FilterOffset,
		CheckTables, CreateEntriesTable, CreateDataTable, MigrateEntryState, MigrateEntryResourceID,
		WriteFormEntry, WriteFormData, DeleteFormEntry, DeleteFormData, DeleteFormField, UpdateFormState,
	}
}
