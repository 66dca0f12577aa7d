// Package navigation は画面ルートの一覧とロール別のリダイレクト判定を持つ。
package navigation

import (
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
)

// Group は画面グループ（ロールで到達可否が決まる単位）
type Group string

const (
	GroupRoot     Group = ""
	GroupAuth     Group = "(auth)"
	GroupCustomer Group = "(customer)"
	GroupVendor   Group = "(vendor)"
)

func ParseGroup(s string) (Group, bool) {
	switch g := Group(strings.TrimSpace(s)); g {
	case GroupRoot, GroupAuth, GroupCustomer, GroupVendor:
		return g, true
	default:
		return "", false
	}
}

type Icon string

const (
	IconHome      Icon = "home"
	IconLogIn     Icon = "log-in"
	IconUserPlus  Icon = "user-plus"
	IconStore     Icon = "store"
	IconCart      Icon = "shopping-cart"
	IconWallet    Icon = "wallet"
	IconReceipt   Icon = "receipt"
	IconDashboard Icon = "layout-dashboard"
	IconPackage   Icon = "package"
	IconClipboard Icon = "clipboard-list"
)

type Route int

const (
	RouteHome Route = iota
	RouteLogin
	RouteSignup
	RouteShopDetail
	RouteCart
	RouteCheckout
	RouteOrderDetails
	RouteVendorDashboard
	RouteManageInventory
	RouteManageOrders
)

type RouteInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Group Group  `json:"group"`
	Icon  Icon   `json:"icon"`
	Label string `json:"label"`
}

var routeTable = [...]RouteInfo{
	RouteHome:            {Name: "home", Path: "/", Group: GroupCustomer, Icon: IconHome, Label: "Home"},
	RouteLogin:           {Name: "login", Path: "/login", Group: GroupAuth, Icon: IconLogIn, Label: "Log in"},
	RouteSignup:          {Name: "signup", Path: "/signup", Group: GroupAuth, Icon: IconUserPlus, Label: "Sign up"},
	RouteShopDetail:      {Name: "shop", Path: "/shop/:id", Group: GroupCustomer, Icon: IconStore, Label: "Shop"},
	RouteCart:            {Name: "cart", Path: "/cart", Group: GroupCustomer, Icon: IconCart, Label: "Cart"},
	RouteCheckout:        {Name: "checkout", Path: "/checkout", Group: GroupCustomer, Icon: IconWallet, Label: "Checkout"},
	RouteOrderDetails:    {Name: "order", Path: "/order/:id", Group: GroupCustomer, Icon: IconReceipt, Label: "Order details"},
	RouteVendorDashboard: {Name: "vendor-dashboard", Path: "/vendor", Group: GroupVendor, Icon: IconDashboard, Label: "Dashboard"},
	RouteManageInventory: {Name: "manage-inventory", Path: "/vendor/inventory", Group: GroupVendor, Icon: IconPackage, Label: "Inventory"},
	RouteManageOrders:    {Name: "manage-orders", Path: "/vendor/orders", Group: GroupVendor, Icon: IconClipboard, Label: "Orders"},
}

func (r Route) Info() RouteInfo {
	return routeTable[r]
}

// Path は :id をidで埋める
func (r Route) Path(id string) string {
	return strings.Replace(routeTable[r].Path, ":id", id, 1)
}

func AllRoutes() []RouteInfo {
	out := make([]RouteInfo, len(routeTable))
	copy(out, routeTable[:])
	return out
}

// Tabs はロール別のタブバー
func Tabs(role model.Role) []RouteInfo {
	var routes []Route
	switch role {
	case model.RoleCustomer:
		routes = []Route{RouteHome, RouteCart}
	case model.RoleVendor:
		routes = []Route{RouteVendorDashboard, RouteManageInventory, RouteManageOrders}
	default:
		routes = []Route{RouteLogin, RouteSignup}
	}

	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Info())
	}
	return out
}
