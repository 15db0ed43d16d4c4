package models

import "strings"

// 帖子 capcode：数据库按单字母存（N/F/D/A/M/G/V），
// 索引文档按小整数存，展示层按枚举名用。
const (
	CapcodeIDUser      = 0
	CapcodeIDFounder   = 1
	CapcodeIDDev       = 2
	CapcodeIDAdmin     = 3
	CapcodeIDModerator = 4
	CapcodeIDManager   = 5
	CapcodeIDVerified  = 6
)

var capcodeLetterIDs = map[string]int{
	"N": CapcodeIDUser,
	"F": CapcodeIDFounder,
	"D": CapcodeIDDev,
	"A": CapcodeIDAdmin,
	"M": CapcodeIDModerator,
	"G": CapcodeIDManager,
	"V": CapcodeIDVerified,
}

var capcodeIDNames = map[int]string{
	CapcodeIDUser:      "user",
	CapcodeIDFounder:   "founder",
	CapcodeIDDev:       "dev",
	CapcodeIDAdmin:     "admin",
	CapcodeIDModerator: "moderator",
	CapcodeIDManager:   "manager",
	CapcodeIDVerified:  "verified",
}

var capcodeNameIDs = func() map[string]int {
	m := make(map[string]int, len(capcodeIDNames))
	for id, name := range capcodeIDNames {
		m[name] = id
	}
	return m
}()

// CapcodeToID 将字母或枚举名转为整数标识；未知值按普通用户处理
func CapcodeToID(capcode string) int {
	capcode = strings.TrimSpace(capcode)
	if id, ok := capcodeLetterIDs[strings.ToUpper(capcode)]; ok && len(capcode) == 1 {
		return id
	}
	if id, ok := capcodeNameIDs[strings.ToLower(capcode)]; ok {
		return id
	}
	return CapcodeIDUser
}

// CapcodeToLetter 将枚举名或字母转为数据库存储的单字母
func CapcodeToLetter(capcode string) string {
	id := CapcodeToID(capcode)
	for letter, letterID := range capcodeLetterIDs {
		if letterID == id {
			return letter
		}
	}
	return "N"
}

// CapcodeFromID 将整数标识转为枚举名；未知值按普通用户处理
func CapcodeFromID(id int) string {
	if name, ok := capcodeIDNames[id]; ok {
		return name
	}
	return capcodeIDNames[CapcodeIDUser]
}
