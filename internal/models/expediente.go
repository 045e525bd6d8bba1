package models

import (
	"time"

	"gorm.io/gorm"
)

// Expediente is a forensic case file. The folio is assigned server-side and
// is unique per registry year.
type Expediente struct {
	BaseModel

	Folio         string    `gorm:"uniqueIndex;size:30;not null" json:"folio"`
	Descripcion   string    `gorm:"not null" json:"descripcion"`
	Sede          string    `gorm:"size:50;index" json:"sede"`
	Estado        string    `gorm:"size:30;default:borrador" json:"estado"`
	FechaRegistro time.Time `gorm:"index;not null" json:"fecha_registro"`

	TecnicoID uint  `gorm:"index;not null" json:"tecnico_id"`
	Tecnico   *User `gorm:"foreignKey:TecnicoID" json:"tecnico,omitempty"`

	Indicios []Indicio `gorm:"foreignKey:ExpedienteID" json:"indicios,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
