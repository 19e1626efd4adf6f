package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/duke-git/lancet/v2/slice"
)

// bookkeepingFields never take part in a fingerprint: they differ between the
// global record and its tenant projection even when the business data agrees.
var bookkeepingFields = []string{
	"id",
	"created_at",
	"updated_at",
	"deleted_at",
	"global_user_id",
	"global_course_id",
	"tenant_id",
	"last_login_at",
	"last_activity_at",
}

// Fingerprint 计算对象业务字段的哈希值
// obj 先序列化为 JSON，去掉元数据字段和 exclude 中的字段后再计算 SHA256。
// encoding/json 对 map 的 key 排序输出，所以结果与字段顺序无关。
func Fingerprint(obj interface{}, exclude ...string) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	var objMap map[string]interface{}
	if err := json.Unmarshal(data, &objMap); err != nil {
		return "", err
	}

	for _, field := range bookkeepingFields {
		delete(objMap, field)
	}
	for _, field := range exclude {
		delete(objMap, field)
	}

	cleanData, err := json.Marshal(objMap)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(cleanData)
	return hex.EncodeToString(sum[:]), nil
}

// IsBookkeeping 字段是否为不参与比对的元数据字段
func IsBookkeeping(field string) bool {
	return slice.Contain(bookkeepingFields, field)
}
