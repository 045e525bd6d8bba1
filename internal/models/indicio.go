package models

import "gorm.io/gorm"

// Indicio is an evidence item attached to an expediente.
type Indicio struct {
	BaseModel

	ExpedienteID uint        `gorm:"index;not null" json:"expediente_id"`
	Expediente   *Expediente `gorm:"foreignKey:ExpedienteID" json:"-"`

	Descripcion string  `gorm:"not null" json:"descripcion"`
	Color       string  `gorm:"size:50" json:"color"`
	Tamano      string  `gorm:"size:50" json:"tamano"`
	PesoGramos  float64 `json:"peso_gramos"`
	Ubicacion   string  `gorm:"size:120" json:"ubicacion"`

	TecnicoID uint  `gorm:"index;not null" json:"tecnico_id"`
	Tecnico   *User `gorm:"foreignKey:TecnicoID" json:"tecnico,omitempty"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
