package storage

// IDGenerator is the default UUID-backed core.IDGenerator implementation.
type IDGenerator struct{}

func (IDGenerator) GenerateID() string {
	return GenerateID()
}
