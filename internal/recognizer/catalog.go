package recognizer

import "github.com/rwalling/arbiter/pkg/types"

// DemoCatalog returns the built-in travel-assistant intent catalog used by
// the eval harness, the simulator, and the interactive commands when no
// catalog file is supplied. Intent names line up with the scripted
// provider's canned replies, so the full pipeline runs offline.
func DemoCatalog() []types.Intent {
	return []types.Intent{
		{
			Name:        "book_flight",
			Description: "预订机票 book a plane ticket flight",
			Examples:    []string{"我想订机票", "订机票", "book a flight to Tokyo"},
		},
		{
			Name:        "book_hotel",
			Description: "预订酒店 book a hotel room",
			Examples:    []string{"我要订酒店", "book a hotel in Paris"},
		},
		{
			Name:        "request_refund",
			Description: "申请退款 request a refund for an order",
			Examples:    []string{"我要退款", "refund my order please"},
		},
		{
			Name:        "check_order",
			Description: "查询订单状态 check order status",
			Examples:    []string{"查一下我的订单", "where is my order"},
		},
		{
			Name:        "greeting",
			Description: "打招呼 say hello",
			Examples:    []string{"你好", "hello there"},
		},
	}
}
