package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// DestinationKind tags where Direction routed a case.
type DestinationKind string

const (
	DestinationNone         DestinationKind = ""
	DestinationSubdirection DestinationKind = "SUBDIRECCION"
	DestinationDepartment   DestinationKind = "DEPARTAMENTO"
)

// Destination is either a subdirection, a department, or nothing. The name
// is only reachable through the accessor matching the kind, so a case can
// never carry both payloads.
type Destination struct {
	kind DestinationKind
	name string
}

// NoDestination is the zero Destination.
func NoDestination() Destination { return Destination{} }

// ToSubdirection routes to a subdirection.
func ToSubdirection(name string) Destination {
	return Destination{kind: DestinationSubdirection, name: name}
}

// ToDepartment routes to a department.
func ToDepartment(name string) Destination {
	return Destination{kind: DestinationDepartment, name: name}
}

func (d Destination) Kind() DestinationKind { return d.kind }

func (d Destination) IsNone() bool { return d.kind == DestinationNone }

// Subdirection returns the subdirection name when the kind is SUBDIRECCION.
func (d Destination) Subdirection() (string, bool) {
	if d.kind != DestinationSubdirection {
		return "", false
	}
	return d.name, true
}

// Department returns the department name when the kind is DEPARTAMENTO.
func (d Destination) Department() (string, bool) {
	if d.kind != DestinationDepartment {
		return "", false
	}
	return d.name, true
}

// Name returns the payload regardless of kind.
func (d Destination) Name() string { return d.name }

func (d Destination) String() string {
	if d.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%s:%s", d.kind, d.name)
}

// destinationDoc is the wire shape shared by JSON and BSON.
type destinationDoc struct {
	Tipo         *string `json:"tipo" bson:"tipo"`
	Subdireccion *string `json:"subdireccion" bson:"subdireccion"`
	Departamento *string `json:"departamento" bson:"departamento"`
}

func (d Destination) toDoc() destinationDoc {
	var doc destinationDoc
	if d.IsNone() {
		return doc
	}
	kind := string(d.kind)
	name := d.name
	doc.Tipo = &kind
	switch d.kind {
	case DestinationSubdirection:
		doc.Subdireccion = &name
	case DestinationDepartment:
		doc.Departamento = &name
	}
	return doc
}

func destinationFromDoc(doc destinationDoc) (Destination, error) {
	if doc.Tipo == nil || *doc.Tipo == "" {
		return NoDestination(), nil
	}
	switch DestinationKind(*doc.Tipo) {
	case DestinationSubdirection:
		if doc.Subdireccion == nil || doc.Departamento != nil {
			return Destination{}, fmt.Errorf("destination %s requires only subdireccion", *doc.Tipo)
		}
		return ToSubdirection(*doc.Subdireccion), nil
	case DestinationDepartment:
		if doc.Departamento == nil || doc.Subdireccion != nil {
			return Destination{}, fmt.Errorf("destination %s requires only departamento", *doc.Tipo)
		}
		return ToDepartment(*doc.Departamento), nil
	default:
		return Destination{}, fmt.Errorf("unknown destination type %q", *doc.Tipo)
	}
}

// MarshalJSON implements json.Marshaler.
func (d Destination) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.toDoc())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Destination) UnmarshalJSON(data []byte) error {
	var doc destinationDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := destinationFromDoc(doc)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalBSON implements bson.Marshaler.
func (d Destination) MarshalBSON() ([]byte, error) {
	return bson.Marshal(d.toDoc())
}

// UnmarshalBSON implements bson.Unmarshaler.
func (d *Destination) UnmarshalBSON(data []byte) error {
	var doc destinationDoc
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := destinationFromDoc(doc)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the destination as a JSON column.
func (d Destination) Value() (driver.Value, error) {
	if d.IsNone() {
		return nil, nil
	}
	b, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads the JSON column written by Value.
func (d *Destination) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = NoDestination()
		return nil
	case string:
		return d.UnmarshalJSON([]byte(v))
	case []byte:
		return d.UnmarshalJSON(v)
	default:
		return fmt.Errorf("cannot scan %T into Destination", value)
	}
}
