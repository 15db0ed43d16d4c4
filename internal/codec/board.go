package codec

import "strings"

// 板块短名与 u32 的互转。每个字符占 6 位，值 0 作为终止符：
//
//	1-10  -> 数字 0-9
//	12-37 -> 字母 a-z
//
// 板块末字符落在最低 6 位，最多 5 个字符填满 30 位。
// 索引主键为 (板块u32 << 32) | 帖号。

const charBits = 6

// BoardToU32 将板块短名编码为 u32
func BoardToU32(board string) uint32 {
	board = strings.ToLower(strings.TrimSpace(board))
	if board == "" {
		return 0
	}
	var res uint32
	shift := 0
	for i := len(board) - 1; i >= 0; i-- {
		c := board[i]
		var val uint32
		switch {
		case c >= 'a' && c <= 'z':
			val = uint32(c-'a') + 12
		case c >= '0' && c <= '9':
			val = uint32(c-'0') + 1
		default:
			continue
		}
		res |= val << shift
		shift += charBits
	}
	return res
}

// U32ToBoard 将 u32 解码回板块短名
func U32ToBoard(encoded uint32) string {
	var chars []byte
	for encoded != 0 {
		val := encoded & 0x3F
		if val == 0 {
			break
		}
		if val <= 10 {
			chars = append(chars, byte('0'+val-1))
		} else {
			chars = append(chars, byte('a'+val-12))
		}
		encoded >>= charBits
	}
	// 低位在前，反转回原顺序
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars)
}

// BoardNumToPK 将 (板块, 帖号) 组合为 u64 索引主键
func BoardNumToPK(board string, num uint32) uint64 {
	return BoardU32NumToPK(BoardToU32(board), num)
}

// BoardU32NumToPK 板块已编码时的主键组合
func BoardU32NumToPK(boardU32 uint32, num uint32) uint64 {
	return uint64(boardU32)<<32 | uint64(num)
}

// PKToBoardNum 将索引主键还原为 (板块, 帖号)
func PKToBoardNum(pk uint64) (string, uint32) {
	return U32ToBoard(uint32(pk >> 32)), uint32(pk & 0xFFFFFFFF)
}
