package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CorrespondenceState is the lifecycle state (estado) of a case.
type CorrespondenceState string

// Correspondence states, in routing order
const (
	StateEnRecepcion              CorrespondenceState = "EN_RECEPCION"
	StateEnDireccionPorInstruir   CorrespondenceState = "EN_DIRECCION_POR_INSTRUIR"
	StateEnDireccionPorReasignar  CorrespondenceState = "EN_DIRECCION_POR_REASIGNAR"
	StateEnSubdireccionPorRecibir CorrespondenceState = "EN_SUBDIRECCION_POR_RECIBIR"
	StateRecibidoEnSubdireccion   CorrespondenceState = "RECIBIDO_EN_SUBDIRECCION"
	StateEnDepartamentoPorRecibir CorrespondenceState = "EN_DEPARTAMENTO_POR_RECIBIR"
	StateRecibidoEnDepartamento   CorrespondenceState = "RECIBIDO_EN_DEPARTAMENTO"
	StateAsignadoATecnico         CorrespondenceState = "ASIGNADO_A_TECNICO"
	StateEnTrabajoTecnico         CorrespondenceState = "EN_TRABAJO_TECNICO"
	StateResueltoPorTecnico       CorrespondenceState = "RESUELTO_POR_TECNICO"
	StateEnSubdireccionRevision   CorrespondenceState = "EN_SUBDIRECCION_REVISION"
	StateEnDireccionRevisionFinal CorrespondenceState = "EN_DIRECCION_REVISION_FINAL"
	StateEnRecepcionParaArchivo   CorrespondenceState = "EN_RECEPCION_PARA_ARCHIVO"
	StateArchivado                CorrespondenceState = "ARCHIVADO"
	StateEnRecepcionCorreccion    CorrespondenceState = "EN_RECEPCION_CORRECCION" // reserved
)

// AllCorrespondenceStates lists every valid state.
var AllCorrespondenceStates = []CorrespondenceState{
	StateEnRecepcion,
	StateEnDireccionPorInstruir,
	StateEnDireccionPorReasignar,
	StateEnSubdireccionPorRecibir,
	StateRecibidoEnSubdireccion,
	StateEnDepartamentoPorRecibir,
	StateRecibidoEnDepartamento,
	StateAsignadoATecnico,
	StateEnTrabajoTecnico,
	StateResueltoPorTecnico,
	StateEnSubdireccionRevision,
	StateEnDireccionRevisionFinal,
	StateEnRecepcionParaArchivo,
	StateArchivado,
	StateEnRecepcionCorreccion,
}

// IsValidCorrespondenceState checks if the state is valid
func IsValidCorrespondenceState(state string) bool {
	for _, s := range AllCorrespondenceStates {
		if string(s) == state {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the state.
func (s CorrespondenceState) IsTerminal() bool {
	return s == StateArchivado
}

// Correspondence is a case (expediente) routed through the organization.
type Correspondence struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id" bson:"_id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt" bson:"updatedAt"`

	// Intake
	RegExpediente     string   `gorm:"index" json:"regExpediente" bson:"regExpediente"`
	DocumentoRecibido string   `gorm:"type:text" json:"documentoRecibido" bson:"documentoRecibido"`
	EnviadoPor        string   `json:"enviadoPor" bson:"enviadoPor"`
	Folios            int      `gorm:"not null;default:0" json:"folios" bson:"folios"`
	Notas             string   `gorm:"type:text" json:"notas" bson:"notas"`
	Profesionales     []string `gorm:"serializer:json;type:text" json:"profesionales" bson:"profesionales"`
	DocumentoURL      string   `gorm:"not null" json:"documentoUrl" bson:"documentoUrl"`

	// Direction routing
	Instrucciones string      `gorm:"type:text" json:"instrucciones" bson:"instrucciones"`
	Destino       Destination `gorm:"type:text" json:"destino" bson:"destino"`

	// Assignment
	JefeID       *string `gorm:"type:uuid;index" json:"jefeId" bson:"jefeId"`
	JefeLabel    string  `json:"jefeLabel,omitempty" bson:"jefeLabel,omitempty"`
	TecnicoID    *string `gorm:"type:uuid;index" json:"tecnicoId" bson:"tecnicoId"`
	TecnicoLabel string  `json:"tecnicoLabel,omitempty" bson:"tecnicoLabel,omitempty"`

	// State and ownership
	Estado      CorrespondenceState `gorm:"not null;index:idx_corr_owner_estado" json:"estado" bson:"estado"`
	OwnerDept   string              `gorm:"not null;index:idx_corr_owner_estado" json:"ownerDept" bson:"ownerDept"`
	OwnerRole   string              `gorm:"not null;index:idx_corr_owner_estado" json:"ownerRole" bson:"ownerRole"`
	OwnerUserID *string             `gorm:"type:uuid;index" json:"ownerUserId" bson:"ownerUserId"`

	History []CorrespondenceHistory `gorm:"foreignKey:CorrespondenceID;constraint:OnDelete:CASCADE" json:"history" bson:"history"`

	Activo    bool   `gorm:"not null;default:true" json:"activo" bson:"activo"`
	CreatedBy string `gorm:"type:uuid;index" json:"createdBy" bson:"createdBy"`
	// Version is bumped on every transition; writes are conditional on it.
	Version int `gorm:"not null;default:1" json:"version" bson:"version"`
}

// BeforeCreate hook to generate UUID
func (c *Correspondence) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Correspondence model
func (Correspondence) TableName() string {
	return "correspondences"
}

// Clone returns a deep copy, so a pending transition never aliases the
// loaded record.
func (c *Correspondence) Clone() *Correspondence {
	cp := *c
	cp.Profesionales = append([]string(nil), c.Profesionales...)
	cp.History = append([]CorrespondenceHistory(nil), c.History...)
	if c.JefeID != nil {
		v := *c.JefeID
		cp.JefeID = &v
	}
	if c.TecnicoID != nil {
		v := *c.TecnicoID
		cp.TecnicoID = &v
	}
	if c.OwnerUserID != nil {
		v := *c.OwnerUserID
		cp.OwnerUserID = &v
	}
	return &cp
}

// CorrespondenceHistory is one append-only transition record.
type CorrespondenceHistory struct {
	ID               string              `gorm:"type:uuid;primarykey" json:"-" bson:"-"`
	CorrespondenceID string              `gorm:"type:uuid;not null;index:idx_corr_history_seq,unique" json:"-" bson:"-"`
	Seq              int                 `gorm:"not null;index:idx_corr_history_seq,unique" json:"-" bson:"-"`
	Timestamp        time.Time           `gorm:"not null" json:"timestamp" bson:"timestamp"`
	Action           string              `gorm:"not null" json:"action" bson:"action"`
	FromState        CorrespondenceState `json:"fromState" bson:"fromState"`
	ToState          CorrespondenceState `gorm:"not null" json:"toState" bson:"toState"`
	Notes            string              `gorm:"type:text" json:"notes" bson:"notes"`
	ActorUserID      string              `gorm:"type:uuid" json:"actorUserId" bson:"actorUserId"`
	ActorDept        string              `json:"actorDept" bson:"actorDept"`
	ActorRole        string              `json:"actorRole" bson:"actorRole"`
}

// BeforeCreate hook to generate UUID
func (h *CorrespondenceHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate keeps history rows immutable
func (h *CorrespondenceHistory) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name for CorrespondenceHistory model
func (CorrespondenceHistory) TableName() string {
	return "correspondence_history"
}
