package config

// 内置边缘函数在各自的 init() 中注册到函数目录，新增函数需在此追加空导入。
import (
	_ "github.com/any-hub/edgesim/internal/functions/cachecontrol"
	_ "github.com/any-hub/edgesim/internal/functions/httpsredirect"
	_ "github.com/any-hub/edgesim/internal/functions/indexrewrite"
	_ "github.com/any-hub/edgesim/internal/functions/securityheaders"
)
