package schema

import (
	"errors"
	"fmt"

	"f0oster/ntdsinspect/activedirectory/transformers"
	"f0oster/ntdsinspect/esedb"

	"go.uber.org/zap"
)

// Names of the class definitions the typed listings depend on.
const (
	TypePerson   = "Person"
	TypeGroup    = "Group"
	TypeComputer = "Computer"

	anchorName = "Schema"
)

var SupportedTypes = []string{TypePerson, TypeGroup, TypeComputer}

var (
	ErrMissingSchemaRecord       = errors.New("no schema record found")
	ErrSchemaRecordHasNoChildren = errors.New("schema record has no children")
)

type MissingTypeError struct {
	Name string
}

func (e *MissingTypeError) Error() string {
	return fmt.Sprintf("missing record for type '%s'", e.Name)
}

// TypeDefinition is a class declared under the schema container. Its record
// id is the value other records carry in objectCategory.
type TypeDefinition struct {
	Name     string
	RecordID int32
	Row      int
}

// Schema is the per-file layout: column bindings, decoder registry, the
// schema anchor and every type definition found beneath it.
type Schema struct {
	Columns   *ColumnMapping
	Registry  *Registry
	AnchorID  int32
	AnchorRow int

	types  []TypeDefinition
	byID   map[int32]TypeDefinition
	byName map[string]TypeDefinition
}

// Resolve discovers the layout of the data table. Running it twice against
// the same table yields the same anchor and type ids.
func Resolve(table esedb.Table, logger *zap.Logger) (*Schema, error) {
	sugar := logger.Sugar()

	columns, err := ResolveColumns(table.Columns())
	if err != nil {
		return nil, err
	}
	s := &Schema{
		Columns:  columns,
		Registry: NewRegistry(),
		byID:     make(map[int32]TypeDefinition),
		byName:   make(map[string]TypeDefinition),
	}

	if err := s.locateAnchor(table, sugar); err != nil {
		return nil, err
	}
	if err := s.collectTypes(table, sugar); err != nil {
		return nil, err
	}
	return s, nil
}

// locateAnchor finds the first record whose RDN is "Schema". Later
// candidates are reported and ignored.
func (s *Schema) locateAnchor(table esedb.Table, sugar *zap.SugaredLogger) error {
	found := false
	err := esedb.ForEachRow(table, func(n int, row esedb.Row) error {
		name, err := s.text(row, AttRdn)
		if err != nil || name != anchorName {
			return nil
		}
		id, err := s.recordID(row)
		if err != nil {
			sugar.Warnw("schema candidate without record id", "row", n, "error", err)
			return nil
		}
		if found {
			sugar.Warnw("ignoring additional schema record", "row", n, "recordId", id, "anchorId", s.AnchorID)
			return nil
		}
		found = true
		s.AnchorID = id
		s.AnchorRow = n
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrMissingSchemaRecord
	}
	sugar.Debugw("located schema record", "recordId", s.AnchorID, "row", s.AnchorRow)
	return nil
}

func (s *Schema) collectTypes(table esedb.Table, sugar *zap.SugaredLogger) error {
	err := esedb.ForEachRow(table, func(n int, row esedb.Row) error {
		parent, err := Read(s.Columns, row, DsParentRecordID, transformers.Int32)
		if err != nil || parent == nil || *parent != s.AnchorID {
			return nil
		}
		name, err := s.text(row, AttRdn)
		if err != nil {
			sugar.Debugw("skipping type definition without name", "row", n, "error", err)
			return nil
		}
		id, err := s.recordID(row)
		if err != nil {
			sugar.Debugw("skipping type definition without record id", "row", n, "error", err)
			return nil
		}
		def := TypeDefinition{Name: name, RecordID: id, Row: n}
		s.types = append(s.types, def)
		s.byID[id] = def
		if _, ok := s.byName[name]; !ok {
			s.byName[name] = def
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(s.types) == 0 {
		return ErrSchemaRecordHasNoChildren
	}
	for _, name := range SupportedTypes {
		def, ok := s.byName[name]
		if !ok {
			return &MissingTypeError{Name: name}
		}
		sugar.Debugw("found type definition", "type", name, "recordId", def.RecordID)
	}
	sugar.Infow("found all required type definitions", "types", len(s.types))
	return nil
}

func (s *Schema) recordID(row esedb.Row) (int32, error) {
	return transformers.Required(Read(s.Columns, row, DsRecordID, transformers.Int32))
}

func (s *Schema) text(row esedb.Row, id AttributeID) (string, error) {
	return transformers.Required(Read(s.Columns, row, id, transformers.Text))
}

// Types lists every type definition in table order, including names the
// engine has no typed view for.
func (s *Schema) Types() []TypeDefinition {
	return s.types
}

func (s *Schema) TypeByID(id int32) (TypeDefinition, bool) {
	def, ok := s.byID[id]
	return def, ok
}

func (s *Schema) TypeByName(name string) (TypeDefinition, bool) {
	def, ok := s.byName[name]
	return def, ok
}
