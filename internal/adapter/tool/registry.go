package tool

import (
	"fmt"
	"log/slog"

	"halbot/internal/domain"
)

// Registry partitions tools into a standard set available to everyone and
// a privileged set available only to the configured admin user. The
// registry is populated at process start and read-only afterwards.
type Registry struct {
	standard    map[string]domain.Tool
	privileged  map[string]domain.Tool
	adminUserID string
	logger      *slog.Logger
}

// NewRegistry creates an empty tool registry. Tools resolved for callerID
// == adminUserID include the privileged set.
// If logger is non-nil, tools are wrapped with schema validation on
// registration; compilation errors are logged and the tool is registered
// unwrapped.
func NewRegistry(adminUserID string, logger *slog.Logger) *Registry {
	return &Registry{
		standard:    make(map[string]domain.Tool),
		privileged:  make(map[string]domain.Tool),
		adminUserID: adminUserID,
		logger:      logger,
	}
}

// Register adds a standard tool. Returns error if the name is already
// registered in either partition.
func (r *Registry) Register(t domain.Tool) error {
	return r.register(t, r.standard)
}

// RegisterPrivileged adds a tool available only to the admin user.
func (r *Registry) RegisterPrivileged(t domain.Tool) error {
	return r.register(t, r.privileged)
}

func (r *Registry) register(t domain.Tool, set map[string]domain.Tool) error {
	name := t.Name()
	if _, exists := r.standard[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	if _, exists := r.privileged[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	if r.logger != nil {
		wrapped, err := WithSchemaValidation(t)
		if err != nil {
			r.logger.Warn("schema validation disabled for tool",
				"tool", name, "error", err)
		} else {
			t = wrapped
		}
	}

	set[name] = t
	return nil
}

// Resolve retrieves a tool by exact name for the given caller. Privileged
// tools resolve only when callerID matches the admin user id; for anyone
// else they behave as if unregistered.
func (r *Registry) Resolve(name, callerID string) (domain.Tool, error) {
	if t, ok := r.standard[name]; ok {
		return t, nil
	}
	if callerID != "" && callerID == r.adminUserID {
		if t, ok := r.privileged[name]; ok {
			return t, nil
		}
	}
	return nil, domain.NewDomainError("Registry.Resolve", domain.ErrToolNotFound, name)
}

// Schemas returns the tool schemas visible to the given caller, standard
// set first.
func (r *Registry) Schemas(callerID string) []domain.ToolSchema {
	schemas := make([]domain.ToolSchema, 0, len(r.standard)+len(r.privileged))
	for _, t := range r.standard {
		schemas = append(schemas, t.Schema())
	}
	if callerID != "" && callerID == r.adminUserID {
		for _, t := range r.privileged {
			schemas = append(schemas, t.Schema())
		}
	}
	return schemas
}
