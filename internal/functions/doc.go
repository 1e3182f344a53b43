// Package functions 维护边缘函数目录：配置中的 handler 名称在此解析为可执行的 edge.Handler。
//
// 编写内置函数时：
//  1. 在 internal/functions/<name>/ 下实现 edge.Handler；
//  2. 在 init() 中调用 functions.MustRegister 注册 Definition，并声明支持的阶段；
//  3. 在 internal/config/functions.go 中以空导入方式引入新包，使配置校验能够识别它。
package functions
