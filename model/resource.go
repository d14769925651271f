package model

// ResourceType tags a physical resource kind.
type ResourceType string

const (
	ResourceTypeICUBed     ResourceType = "ICU_BED"
	ResourceTypeVentilator ResourceType = "VENTILATOR"
)

const (
	ResourceStatusFree  = "free"
	ResourceStatusInUse = "in_use"
)

// Resource represents a single allocatable unit of the inventory
type Resource struct {
	ID     int          `json:"id" db:"id"`
	Type   ResourceType `json:"resource_type" db:"resource_type"`
	Label  string       `json:"label" db:"label"`
	Status string       `json:"status" db:"status"`
}

// IsFree returns true when resource can be allocated
func (r *Resource) IsFree() bool {
	return r.Status == ResourceStatusFree
}

// Clone returns a copy of the resource
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	ret := *r
	return &ret
}
