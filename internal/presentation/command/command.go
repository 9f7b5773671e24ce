// Package command decodes conversational callback identifiers into typed
// commands. The transport layer parses each identifier exactly once at its
// boundary; downstream code switches on the variant instead of re-splitting
// strings.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mkvend/vendbot/internal/domain/catalog"
)

var ErrUnknown = errors.New("command: unknown callback")

// Command is a tagged variant carrying already-parsed arguments.
type Command interface{ isCommand() }

type (
	OpenCatalog  struct{}
	MainMenu     struct{}
	ShowInfo     struct{}
	ShowSupport  struct{}
	ShowProduct  struct{ ProductID int64 }
	Buy          struct{ ProductID int64 }
	CheckPayment struct{ PaymentRef string }
	CancelPay    struct{}

	AdminMenu        struct{}
	AdminAddProduct  struct{}
	AdminProducts    struct{}
	AdminOrders      struct{}
	AdminStats       struct{}
	AdminProduct     struct{ ProductID int64 }
	AdminEditPrice   struct{ ProductID int64 }
	AdminEditDesc    struct{ ProductID int64 }
	AdminAddStock    struct{ ProductID int64 }
	AdminDelete      struct{ ProductID int64 }
	AdminConfirmDel  struct{ ProductID int64 }
	ChooseKind       struct{ Kind catalog.Kind }
)

func (OpenCatalog) isCommand()     {}
func (MainMenu) isCommand()        {}
func (ShowInfo) isCommand()        {}
func (ShowSupport) isCommand()     {}
func (ShowProduct) isCommand()     {}
func (Buy) isCommand()             {}
func (CheckPayment) isCommand()    {}
func (CancelPay) isCommand()       {}
func (AdminMenu) isCommand()       {}
func (AdminAddProduct) isCommand() {}
func (AdminProducts) isCommand()   {}
func (AdminOrders) isCommand()     {}
func (AdminStats) isCommand()      {}
func (AdminProduct) isCommand()    {}
func (AdminEditPrice) isCommand()  {}
func (AdminEditDesc) isCommand()   {}
func (AdminAddStock) isCommand()   {}
func (AdminDelete) isCommand()     {}
func (AdminConfirmDel) isCommand() {}
func (ChooseKind) isCommand()      {}

// Decode parses one callback identifier. Malformed input yields an error,
// never a panic.
func Decode(data string) (Command, error) {
	switch data {
	case "catalog":
		return OpenCatalog{}, nil
	case "back_to_main":
		return MainMenu{}, nil
	case "info":
		return ShowInfo{}, nil
	case "support":
		return ShowSupport{}, nil
	case "cancel_payment":
		return CancelPay{}, nil
	case "admin_menu":
		return AdminMenu{}, nil
	case "admin_add_product":
		return AdminAddProduct{}, nil
	case "admin_products":
		return AdminProducts{}, nil
	case "admin_orders":
		return AdminOrders{}, nil
	case "admin_stats":
		return AdminStats{}, nil
	case "product_type_key":
		return ChooseKind{Kind: catalog.KindKey}, nil
	case "product_type_file":
		return ChooseKind{Kind: catalog.KindFile}, nil
	}

	if ref, ok := strings.CutPrefix(data, "check_payment_"); ok {
		if ref == "" {
			return nil, fmt.Errorf("%w: empty payment ref in %q", ErrUnknown, data)
		}
		return CheckPayment{PaymentRef: ref}, nil
	}

	for _, p := range idPrefixes {
		rest, ok := strings.CutPrefix(data, p.prefix)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad id in %q", ErrUnknown, data)
		}
		return p.build(id), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknown, data)
}

var idPrefixes = []struct {
	prefix string
	build  func(int64) Command
}{
	// Longer prefixes first so "admin_confirm_delete_" is never shadowed.
	{"admin_confirm_delete_", func(id int64) Command { return AdminConfirmDel{ProductID: id} }},
	{"admin_edit_price_", func(id int64) Command { return AdminEditPrice{ProductID: id} }},
	{"admin_edit_desc_", func(id int64) Command { return AdminEditDesc{ProductID: id} }},
	{"admin_add_stock_", func(id int64) Command { return AdminAddStock{ProductID: id} }},
	{"admin_product_", func(id int64) Command { return AdminProduct{ProductID: id} }},
	{"admin_delete_", func(id int64) Command { return AdminDelete{ProductID: id} }},
	{"product_", func(id int64) Command { return ShowProduct{ProductID: id} }},
	{"buy_", func(id int64) Command { return Buy{ProductID: id} }},
}
