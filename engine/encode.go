package engine

import (
	"encoding/binary"

	"matchcore/matching"
)

// encodeTradePayload serializes a Trade for journal storage:
// [trade_id:8][buy_id:8][sell_id:8][symbol:4][price:8][qty:8][aggressor:1].
func encodeTradePayload(t matching.Trade) []byte {
	buf := make([]byte, 8+8+8+4+8+8+1)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(t.ID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(t.BuyOrderID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(t.SellOrderID))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.Symbol))
	binary.LittleEndian.PutUint64(buf[28:36], uint64(t.Price))
	binary.LittleEndian.PutUint64(buf[36:44], uint64(t.Qty))
	buf[44] = byte(t.Aggressor)
	return buf
}

// encodeOrderUpdatePayload serializes an OrderUpdate for journal storage:
// [order_id:8][symbol:4][status:1][filled:8][remaining:8][reason_len:2][reason].
func encodeOrderUpdatePayload(u matching.OrderUpdate) []byte {
	reason := []byte(u.Reason)
	buf := make([]byte, 8+4+1+8+8+2+len(reason))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(u.OrderID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(u.Symbol))
	buf[12] = byte(u.Status)
	binary.LittleEndian.PutUint64(buf[13:21], uint64(u.Filled))
	binary.LittleEndian.PutUint64(buf[21:29], uint64(u.Remaining))
	binary.LittleEndian.PutUint16(buf[29:31], uint16(len(reason)))
	copy(buf[31:], reason)
	return buf
}
