// Package fuzztests houses Go fuzz harnesses for the fabrication pipeline
// (directive grammar, argument placement, the six stages end to end). They
// guard against panics and hangs on arbitrary input.
//
// Назначение: подавать произвольные байты в FileSet и прогонять их через
// стадии; фатальные диагностики допустимы, паники и зависания нет.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
package fuzztests
