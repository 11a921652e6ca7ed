package models

// Определяем константы для ролей
const (
	RoleAdmin = "ROLE_ADMIN"
	RoleUser  = "ROLE_USER"
)

// AllRoles возвращает слайс всех определенных ролей.
func AllRoles() []string {
	return []string{
		RoleAdmin,
		RoleUser,
	}
}

// IsKnownRole проверяет, что роль входит в список известных.
func IsKnownRole(role string) bool {
	return HasRole(AllRoles(), role)
}

// HasRole проверяет, есть ли у пользователя указанная роль.
func HasRole(userRoles []string, targetRole string) bool {
	for _, role := range userRoles {
		if role == targetRole {
			return true
		}
	}
	return false
}
