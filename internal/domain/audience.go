package domain

import "fmt"

// Role names a recipient group of order events.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleKitchen Role = "kitchen"
	RoleCashier Role = "cashier"
	RoleTable   Role = "table"
)

// ChannelID is the addressable destination an audience's events go to.
type ChannelID string

const channelPrefix = "orders."

// Audience is built only through Admin, Kitchen, Cashier, Table or
// ParseAudience, so a routed audience is always one of the known values.
type Audience struct {
	role    Role
	tableID string
}

var (
	Admin   = Audience{role: RoleAdmin}
	Kitchen = Audience{role: RoleKitchen}
	Cashier = Audience{role: RoleCashier}
)

// Table is the audience of one table's customer device.
func Table(tableID string) Audience {
	return Audience{role: RoleTable, tableID: tableID}
}

func (a Audience) Role() Role { return a.role }

func (a Audience) TableID() string { return a.tableID }

func (a Audience) String() string {
	if a.role == RoleTable {
		return fmt.Sprintf("table(%s)", a.tableID)
	}
	return string(a.role)
}

// ChannelFor maps an audience to its channel.
func ChannelFor(a Audience) ChannelID {
	if a.role == RoleTable {
		return ChannelID(channelPrefix + "table." + a.tableID)
	}
	return ChannelID(channelPrefix + string(a.role))
}

// ParseAudience turns external input into an Audience.
func ParseAudience(role, tableID string) (Audience, error) {
	switch Role(role) {
	case RoleAdmin:
		return Admin, nil
	case RoleKitchen:
		return Kitchen, nil
	case RoleCashier:
		return Cashier, nil
	case RoleTable:
		if err := ValidateTableID(tableID); err != nil {
			return Audience{}, fmt.Errorf("%w: %v", ErrUnknownAudience, err)
		}
		return Table(tableID), nil
	default:
		return Audience{}, fmt.Errorf("%w: %q", ErrUnknownAudience, role)
	}
}
