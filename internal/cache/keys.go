package cache

// KeySetting returns the cache key for a site setting.
func KeySetting(name string) string {
	return "setting:" + name
}
