package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

func NewConfig(p string) *viper.Viper {
	envConf := os.Getenv("APP_CONF")
	if envConf == "" {
		envConf = p
	}
	fmt.Println("load conf file:", envConf)
	return getConfig(envConf)
}

func getConfig(path string) *viper.Viper {
	conf, err := Load(path)
	if err != nil {
		panic(err)
	}
	return conf
}

// Load 读取配置文件，环境变量 TENANTSYNC_* 覆盖同名配置（sync.lock_ttl -> TENANTSYNC_SYNC_LOCK_TTL）
func Load(path string) (*viper.Viper, error) {
	conf := viper.New()
	conf.SetConfigFile(path)
	conf.SetEnvPrefix("TENANTSYNC")
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()
	if err := conf.ReadInConfig(); err != nil {
		return nil, err
	}
	return conf, nil
}
