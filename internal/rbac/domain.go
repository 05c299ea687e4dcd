package rbac

import (
	"errors"
	"fmt"
	"time"
)

// Category groups permissions by business area.
type Category string

const (
	CategorySales          Category = "SALES"
	CategoryInventory      Category = "INVENTORY"
	CategoryReports        Category = "REPORTS"
	CategoryUserManagement Category = "USER_MANAGEMENT"
	CategorySystem         Category = "SYSTEM"
	CategoryPayment        Category = "PAYMENT"
	CategoryCustomer       Category = "CUSTOMER"
	CategoryDiscount       Category = "DISCOUNT"
)

var categories = map[Category]struct{}{
	CategorySales: {}, CategoryInventory: {}, CategoryReports: {},
	CategoryUserManagement: {}, CategorySystem: {}, CategoryPayment: {},
	CategoryCustomer: {}, CategoryDiscount: {},
}

// ParseCategory validates a stored category value.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("rbac: unknown category %q", s)
	}
	return c, nil
}

// Level is a totally ordered capability tier.
type Level int

const (
	LevelRead   Level = 1
	LevelWrite  Level = 2
	LevelDelete Level = 3
	LevelAdmin  Level = 4
)

var levelNames = map[Level]string{
	LevelRead:   "READ",
	LevelWrite:  "WRITE",
	LevelDelete: "DELETE",
	LevelAdmin:  "ADMIN",
}

// ParseLevel validates a stored level value.
func ParseLevel(s string) (Level, error) {
	for lvl, name := range levelNames {
		if name == s {
			return lvl, nil
		}
	}
	return 0, fmt.Errorf("rbac: unknown level %q", s)
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Priority returns the numeric ordering of the level.
func (l Level) Priority() int { return int(l) }

// HigherThan compares strictly; equal levels are not higher.
func (l Level) HigherThan(other Level) bool { return l > other }

// Permission is an immutable capability record. Construct through
// NewPermission, which validates the invariants once.
type Permission struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Level       Level
	deps        map[string]struct{}
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	errBlankID   = errors.New("rbac: permission id cannot be blank")
	errBlankName = errors.New("rbac: permission name cannot be blank")
)

// NewPermission validates and constructs a Permission. The dependency
// set is copied and immutable afterwards.
func NewPermission(id, name, description string, category Category, level Level, dependencies []string, isActive bool, createdAt, updatedAt time.Time) (Permission, error) {
	if id == "" {
		return Permission{}, errBlankID
	}
	if name == "" {
		return Permission{}, errBlankName
	}
	if _, ok := categories[category]; !ok {
		return Permission{}, fmt.Errorf("rbac: unknown category %q", category)
	}
	if _, ok := levelNames[level]; !ok {
		return Permission{}, fmt.Errorf("rbac: unknown level %d", level)
	}
	deps := make(map[string]struct{}, len(dependencies))
	for _, dep := range dependencies {
		if dep == "" {
			continue
		}
		deps[dep] = struct{}{}
	}
	return Permission{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		Level:       level,
		deps:        deps,
		IsActive:    isActive,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// Dependencies returns the dependency ids as a fresh slice.
func (p Permission) Dependencies() []string {
	out := make([]string, 0, len(p.deps))
	for dep := range p.deps {
		out = append(out, dep)
	}
	return out
}

// DependsOn reports whether id is a direct dependency.
func (p Permission) DependsOn(id string) bool {
	_, ok := p.deps[id]
	return ok
}

// HasDependencies reports whether the permission has any dependencies.
func (p Permission) HasDependencies() bool { return len(p.deps) > 0 }

type seedPermission struct {
	id, name, description string
	category              Category
	level                 Level
	dependencies          []string
}

var defaultSeed = []seedPermission{
	{"SALES_PROCESS", "Process Sale", "Process customer transactions and sales", CategorySales, LevelWrite, nil},
	{"SALES_VOID", "Void Transaction", "Void or cancel transactions", CategorySales, LevelDelete, []string{"SALES_PROCESS"}},
	{"DISCOUNT_APPLY", "Apply Discount", "Apply discounts to items or transactions", CategoryDiscount, LevelWrite, []string{"SALES_PROCESS"}},
	{"INVENTORY_VIEW", "View Inventory", "View current inventory levels and product information", CategoryInventory, LevelRead, nil},
	{"INVENTORY_MANAGE", "Manage Inventory", "Add, edit, and manage inventory items", CategoryInventory, LevelWrite, []string{"INVENTORY_VIEW"}},
	{"REPORTS_VIEW", "View Reports", "View sales and business reports", CategoryReports, LevelRead, nil},
	{"REPORTS_GENERATE", "Generate Reports", "Generate custom reports and export data", CategoryReports, LevelWrite, []string{"REPORTS_VIEW"}},
	{"USER_MANAGE", "Manage Users", "Create, edit, and manage user accounts", CategoryUserManagement, LevelWrite, nil},
	{"PERMISSION_MANAGE", "Manage Permissions", "Assign and manage user permissions", CategoryUserManagement, LevelAdmin, []string{"USER_MANAGE"}},
	{"SYSTEM_SETTINGS", "System Settings", "Access and modify system settings", CategorySystem, LevelAdmin, nil},
}

// DefaultPermissions returns the built-in POS permission catalog.
func DefaultPermissions() []Permission {
	now := time.Now().UTC()
	out := make([]Permission, 0, len(defaultSeed))
	for _, s := range defaultSeed {
		perm, err := NewPermission(s.id, s.name, s.description, s.category, s.level, s.dependencies, true, now, now)
		if err != nil {
			// The seed table is static; a bad entry is a programming error.
			panic(err)
		}
		out = append(out, perm)
	}
	return out
}
