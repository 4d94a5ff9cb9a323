package steamid

import (
	"errors"
	"strconv"

	"github.com/rotisserie/eris"
)

type Universe uint
type Type uint
type Instance uint

//goland:noinspection GoUnusedConst
const (
	UniverseInvalid Universe = iota
	UniversePublic
	UniverseBeta
	UniverseInternal
	UniverseDev
)

//goland:noinspection GoUnusedConst
const (
	TypeInvalid Type = iota
	TypeIndividual
	TypeMultiseat
	TypeGameServer
	TypeAnonGameServer
	TypePending
	TypeContentServer
	TypeClan
	TypeChat
	TypeP2pSuperSeeder
	TypeAnonUser
)

//goland:noinspection GoUnusedConst
const (
	InstanceAll Instance = iota
	InstanceDesktop
	InstanceConsole
	InstanceWeb
)

const (
	accountIDMask       uint64 = 0xFFFFFFFF
	accountInstanceMask uint64 = 0x000FFFFF
	accountTypeMask     uint64 = 0xF
)

var (
	ErrEmpty   = errors.New("can't parse empty string as SteamID64")
	ErrInvalid = errors.New("SteamID64 does not describe a valid account")
)

// SteamID is a parsed SteamID64. The zero value is invalid.
type SteamID struct {
	raw       uint64
	universe  Universe
	idType    Type
	instance  Instance
	accountID uint32
}

func Parse(s string) (SteamID, error) {
	if s == "" {
		return SteamID{}, ErrEmpty
	}

	parsedID, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return SteamID{}, eris.Wrapf(err, "can't parse %q as SteamID64", s)
	}

	return FromUint64(parsedID), nil
}

// ParseIndividual parses s and requires it to name an individual account, which is the only kind that
// can own an inventory or log in.
func ParseIndividual(s string) (SteamID, error) {
	id, err := Parse(s)
	if err != nil {
		return SteamID{}, err
	}

	if !id.IsValidIndividual() {
		return SteamID{}, eris.Wrapf(ErrInvalid, "%s is not an individual account", s)
	}

	return id, nil
}

func FromUint64(v uint64) SteamID {
	return SteamID{
		raw:       v,
		accountID: uint32(v & accountIDMask),
		instance:  Instance((v >> 32) & accountInstanceMask),
		idType:    Type((v >> 52) & accountTypeMask),
		universe:  Universe(v >> 56),
	}
}

func (id SteamID) String() string {
	return strconv.FormatUint(id.raw, 10)
}

func (id SteamID) Uint64() uint64 {
	return id.raw
}

func (id SteamID) IsZero() bool {
	return id.raw == 0
}

func (id SteamID) IsValid() bool {
	switch {
	case id.idType <= TypeInvalid || id.idType > TypeAnonUser:
		return false
	case id.universe <= UniverseInvalid || id.universe > UniverseDev:
		return false
	case id.idType == TypeIndividual && (id.accountID == 0 || id.instance > InstanceWeb):
		return false
	case id.idType == TypeClan && (id.accountID == 0 || id.instance != InstanceAll):
		return false
	case id.idType == TypeGameServer && id.accountID == 0:
		return false
	}

	return true
}

func (id SteamID) IsValidIndividual() bool {
	return id.universe == UniversePublic &&
		id.idType == TypeIndividual &&
		id.instance == InstanceDesktop &&
		id.accountID != 0
}

func (id SteamID) AccountId() uint32 {
	return id.accountID
}
