package idgen

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"
)

// IDGenerator is the interface for generating unique IDs
type IDGenerator interface {
	// NextID generates a new unique ID
	NextID() (string, error)
}

// SonyflakeGenerator implements IDGenerator using sonyflake
type SonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeGenerator creates a new SonyflakeGenerator
func NewSonyflakeGenerator(machineID uint16) (*SonyflakeGenerator, error) {
	st := sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	}

	sf, err := sonyflake.New(st)
	if err != nil {
		return nil, fmt.Errorf("failed to create sonyflake: %w", err)
	}

	return &SonyflakeGenerator{sf: sf}, nil
}

// NextID generates a new unique ID
func (g *SonyflakeGenerator) NextID() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return strconv.FormatUint(id, 10), nil
}

// UUIDGenerator implements IDGenerator using random UUIDs
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NextID generates a new UUID v4
func (g *UUIDGenerator) NextID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Global default generator
var (
	defaultGenerator IDGenerator
	mu               sync.Mutex
)

// SetDefaultGenerator sets the default ID generator
func SetDefaultGenerator(gen IDGenerator) {
	mu.Lock()
	defer mu.Unlock()
	defaultGenerator = gen
}

// GetDefaultGenerator returns the default ID generator
// If not set, creates a SonyflakeGenerator with machineID 1
func GetDefaultGenerator() (IDGenerator, error) {
	mu.Lock()
	defer mu.Unlock()
	if defaultGenerator == nil {
		gen, err := NewSonyflakeGenerator(1)
		if err != nil {
			return nil, err
		}
		defaultGenerator = gen
	}
	return defaultGenerator, nil
}

// NextID generates a new ID using the default generator
func NextID() (string, error) {
	gen, err := GetDefaultGenerator()
	if err != nil {
		return "", err
	}
	return gen.NextID()
}
